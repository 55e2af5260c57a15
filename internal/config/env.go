package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Getenv looks up an environment variable. os.Getenv satisfies it.
type Getenv func(string) string

// Env returns the trimmed value of the variable named name, or "" when name is empty.
func Env(getenv Getenv, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || getenv == nil {
		return ""
	}
	return strings.TrimSpace(getenv(name))
}

// firstEnv returns the first non-empty value among names.
func firstEnv(getenv Getenv, names ...string) string {
	for _, n := range names {
		if v := Env(getenv, n); v != "" {
			return v
		}
	}
	return ""
}

// APIKey resolves the embedding API key: api_key_env first, then the
// provider's conventional variables.
func (e EmbeddingConfig) APIKey(getenv Getenv) string {
	switch e.Provider {
	case "openai":
		return firstEnv(getenv, e.APIKeyEnv, "OPENAI_API_KEY")
	case "google":
		return firstEnv(getenv, e.APIKeyEnv, "GOOGLE_API_KEY", "GEMINI_API_KEY")
	default:
		return Env(getenv, e.APIKeyEnv)
	}
}

// BaseURL resolves the optional provider base URL.
func (e EmbeddingConfig) BaseURL(getenv Getenv) string {
	return Env(getenv, e.BaseURLEnv)
}

// Endpoint resolves the vector store URL.
func (v VectorDBConfig) Endpoint(getenv Getenv) string {
	return Env(getenv, v.EndpointEnv)
}

// APIKey resolves the vector store key.
func (v VectorDBConfig) APIKey(getenv Getenv) string {
	return Env(getenv, v.APIKeyEnv)
}

// Endpoint resolves the search engine URL.
func (b BM25Config) Endpoint(getenv Getenv) string {
	return Env(getenv, b.EndpointEnv)
}

// APIKey resolves the search engine key.
func (b BM25Config) APIKey(getenv Getenv) string {
	return Env(getenv, b.APIKeyEnv)
}

// AuthHeader resolves a full Authorization header value, falling back to ELASTIC_AUTH_HEADER.
func (b BM25Config) AuthHeader(getenv Getenv) string {
	return firstEnv(getenv, b.AuthHeaderEnv, "ELASTIC_AUTH_HEADER")
}

// APIKey resolves the reranker key: api_key_env first, then COHERE_API_KEY for cohere.
func (r RerankConfig) APIKey(getenv Getenv) string {
	if r.Provider == "cohere" {
		return firstEnv(getenv, r.APIKeyEnv, "COHERE_API_KEY")
	}
	return Env(getenv, r.APIKeyEnv)
}

// Endpoint resolves the optional reranker base URL.
func (r RerankConfig) Endpoint(getenv Getenv) string {
	return Env(getenv, r.EndpointEnv)
}

// LoadDotEnv loads variables from each existing file in paths without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
