package rerank

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/remote"
)

const (
	// DefaultCohereModel is used when no model is configured.
	DefaultCohereModel = "rerank-v4.0-fast"
	// DefaultCohereBaseURL is the public Cohere API endpoint.
	DefaultCohereBaseURL = "https://api.cohere.com"
)

// CohereConfig configures the Cohere reranker.
type CohereConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Cohere calls the Cohere v2 rerank endpoint.
type Cohere struct {
	cfg    CohereConfig
	client *remote.Client
}

// NewCohere returns a Cohere reranker.
func NewCohere(cfg CohereConfig, client *remote.Client) (*Cohere, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("cohere: api key is required (set COHERE_API_KEY)")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultCohereBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultCohereModel
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if client == nil {
		client = remote.NewClient("cohere")
	}
	return &Cohere{cfg: cfg, client: client}, nil
}

// Name returns "cohere".
func (c *Cohere) Name() string {
	return string(ProviderCohere)
}

type cohereRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank sends "title\ntext" for each doc and maps result indexes back to doc ids.
func (c *Cohere) Rerank(ctx context.Context, query string, docs []*models.Document, topK int) ([]models.ScoredDoc, error) {
	if len(docs) == 0 || topK <= 0 {
		return []models.ScoredDoc{}, nil
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = strings.TrimSpace(d.Title + "\n" + d.Text)
	}
	topN := topK
	if topN > len(texts) {
		topN = len(texts)
	}

	req := cohereRequest{Model: c.cfg.Model, Query: query, Documents: texts, TopN: topN}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	var resp cohereResponse
	if err := c.client.DoJSON(ctx, http.MethodPost, c.cfg.BaseURL+"/v2/rerank", headers, req, &resp); err != nil {
		return nil, fmt.Errorf("cohere rerank failed: %w", err)
	}

	scored := make([]models.ScoredDoc, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, fmt.Errorf("cohere rerank: result index %d out of range for %d documents", r.Index, len(docs))
		}
		scored = append(scored, models.ScoredDoc{
			DocID:  docs[r.Index].DocID,
			Score:  r.RelevanceScore,
			Source: models.SourceRerank,
		})
	}
	return sortAndTruncate(scored, topN), nil
}
