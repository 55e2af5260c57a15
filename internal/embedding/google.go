package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"

	"github.com/hyperjump/kurabe/internal/remote"
)

const (
	// DefaultGoogleModel is used when no model is configured.
	DefaultGoogleModel = "gemini-embedding-001"
	// googleMaxBatch is the per-request limit of the batch embed endpoint.
	googleMaxBatch = 100

	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GoogleConfig contains configuration for the Google embedder.
type GoogleConfig struct {
	APIKey               string
	BaseURL              string
	Model                string
	OutputDimensionality int
	// HTTPClient defaults to one that retries transient statuses with the remote policy.
	HTTPClient *http.Client
}

// contentEmbedder is the slice of the genai client used here.
type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// GoogleEmbedder embeds text with Gemini embedding models, using separate task
// types for documents and queries.
type GoogleEmbedder struct {
	api       contentEmbedder
	model     string
	outputDim int

	mu  sync.Mutex
	dim int
}

// NewGoogleEmbedder creates a Google embedder backed by the Gemini API.
func NewGoogleEmbedder(ctx context.Context, cfg GoogleConfig) (*GoogleEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Google API key is required (set GOOGLE_API_KEY or GEMINI_API_KEY)")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = remote.NewClient("google").HTTPClient()
	}
	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("google: failed to create client: %w", err)
	}
	return newGoogleEmbedder(client.Models, cfg), nil
}

func newGoogleEmbedder(api contentEmbedder, cfg GoogleConfig) *GoogleEmbedder {
	if cfg.Model == "" {
		cfg.Model = DefaultGoogleModel
	}
	return &GoogleEmbedder{api: api, model: cfg.Model, outputDim: cfg.OutputDimensionality}
}

func (e *GoogleEmbedder) embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	config := &genai.EmbedContentConfig{TaskType: taskType}
	if e.outputDim > 0 {
		d := int32(e.outputDim)
		config.OutputDimensionality = &d
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += googleMaxBatch {
		end := start + googleMaxBatch
		if end > len(texts) {
			end = len(texts)
		}
		contents := make([]*genai.Content, 0, end-start)
		for _, t := range texts[start:end] {
			contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
		}
		res, err := e.api.EmbedContent(ctx, e.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("google: embed content failed: %w", err)
		}
		for _, emb := range res.Embeddings {
			out = append(out, emb.Values)
		}
	}
	if err := checkCount(len(texts), len(out)); err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}

	e.mu.Lock()
	if e.dim == 0 && len(out) > 0 {
		e.dim = len(out[0])
	}
	e.mu.Unlock()
	return out, nil
}

// EmbedDocuments embeds catalog texts with the RETRIEVAL_DOCUMENT task.
func (e *GoogleEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embed(ctx, texts, taskRetrievalDocument)
}

// EmbedQuery embeds a query with the RETRIEVAL_QUERY task.
func (e *GoogleEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := e.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedTexts treats texts as documents.
func (e *GoogleEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return e.EmbedDocuments(ctx, texts)
}

// Dimensions returns the discovered vector size (0 before the first call).
func (e *GoogleEmbedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

// Close is a no-op.
func (e *GoogleEmbedder) Close() error {
	return nil
}
