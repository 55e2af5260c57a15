// Package embedding provides text embedding providers (hash mock, OpenAI, Google,
// local ONNX) and a query cache.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrCountMismatch is returned when a provider returns a different number of
// vectors than texts it was given.
var ErrCountMismatch = errors.New("embedding count mismatch")

// Embedder produces vector embeddings for text.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the vector size, or 0 while a provider has not yet discovered it.
	Dimensions() int
	Close() error
}

// TaskEmbedder is implemented by providers that embed documents and queries differently.
type TaskEmbedder interface {
	Embedder
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider names an embedding backend in vendor configuration.
type Provider string

const (
	ProviderMock   Provider = "mock"
	ProviderOpenAI Provider = "openai"
	ProviderGoogle Provider = "google"
	ProviderONNX   Provider = "onnx"
)

// ParseProvider validates an embedding provider name. Empty means mock.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderMock, nil
	case ProviderMock, ProviderOpenAI, ProviderGoogle, ProviderONNX:
		return p, nil
	default:
		return "", fmt.Errorf("unknown embedding provider: %s (supported: mock, openai, google, onnx)", s)
	}
}

// EmbedDocuments embeds catalog texts, using the document task when e supports it.
func EmbedDocuments(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	var (
		out [][]float32
		err error
	)
	if te, ok := e.(TaskEmbedder); ok {
		out, err = te.EmbedDocuments(ctx, texts)
	} else {
		out, err = e.EmbedTexts(ctx, texts)
	}
	if err != nil {
		return nil, err
	}
	if err := checkCount(len(texts), len(out)); err != nil {
		return nil, err
	}
	return out, nil
}

// EmbedQuery embeds one query text, using the query task when e supports it.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if te, ok := e.(TaskEmbedder); ok {
		return te.EmbedQuery(ctx, text)
	}
	out, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if err := checkCount(1, len(out)); err != nil {
		return nil, err
	}
	return out[0], nil
}

func checkCount(in, out int) error {
	if in != out {
		return fmt.Errorf("%w: in=%d out=%d", ErrCountMismatch, in, out)
	}
	return nil
}
