package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sashabaranov/go-openai"

	"github.com/hyperjump/kurabe/internal/remote"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "text-embedding-3-small"
	openAIMaxBatch     = 2048
)

// OpenAIConfig contains configuration for the OpenAI embedder.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional custom base URL
	Model   string
	// HTTPClient defaults to one that retries transient statuses with the remote policy.
	HTTPClient *http.Client
}

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string

	mu  sync.Mutex
	dim int
}

// NewOpenAIEmbedder creates an OpenAI embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = remote.NewClient("openai").HTTPClient()
	}
	config.HTTPClient = cfg.HTTPClient
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
	}, nil
}

// EmbedTexts embeds texts in batches; results are placed by the response index.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openAIMaxBatch {
		end := start + openAIMaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	e.rememberDim(out)
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if err := checkCount(len(texts), len(resp.Data)); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	results := make([][]float32, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(results) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", data.Index)
		}
		results[data.Index] = data.Embedding
	}
	for i, r := range results {
		if r == nil {
			return nil, fmt.Errorf("openai: %w: no embedding for input %d", ErrCountMismatch, i)
		}
	}
	return results, nil
}

func (e *OpenAIEmbedder) rememberDim(out [][]float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim == 0 && len(out) > 0 {
		e.dim = len(out[0])
	}
}

// Dimensions returns the discovered vector size (0 before the first call).
func (e *OpenAIEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
