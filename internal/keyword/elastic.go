package keyword

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/remote"
)

// ElasticConfig configures the Elasticsearch lexical retriever.
type ElasticConfig struct {
	BaseURL    string
	Index      string
	APIKey     string
	AuthHeader string
}

// Elastic queries an Elasticsearch index whose documents carry a "bm25_text"
// field and use the catalog doc_id as their _id.
type Elastic struct {
	cfg    ElasticConfig
	docs   []*models.Document
	client *remote.Client
}

// NewElastic returns an Elasticsearch retriever. docs is the run catalog, used for
// the empty-query fallback.
func NewElastic(cfg ElasticConfig, docs []*models.Document, client *remote.Client) (*Elastic, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("elastic: base URL is required")
	}
	if cfg.Index == "" {
		cfg.Index = "products"
	}
	if client == nil {
		client = remote.NewClient("elastic")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Elastic{cfg: cfg, docs: docs, client: client}, nil
}

// Name returns "elastic".
func (e *Elastic) Name() string {
	return "elastic"
}

// AuthorizationHeader resolves the Authorization value: an explicit header wins,
// otherwise an API key is sent as-is when it already names a scheme, else as "ApiKey <key>".
func AuthorizationHeader(authHeader, apiKey string) string {
	if h := strings.TrimSpace(authHeader); h != "" {
		return h
	}
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return ""
	}
	lower := strings.ToLower(key)
	for _, scheme := range []string{"apikey ", "bearer ", "basic "} {
		if strings.HasPrefix(lower, scheme) {
			return key
		}
	}
	return "ApiKey " + key
}

type elasticSearchRequest struct {
	Size           int            `json:"size"`
	TrackTotalHits bool           `json:"track_total_hits"`
	Query          map[string]any `json:"query"`
}

type elasticSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID    string   `json:"_id"`
			Score *float64 `json:"_score"`
		} `json:"hits"`
	} `json:"hits"`
}

// Query runs a match query on bm25_text. Hits without an _id are skipped.
func (e *Elastic) Query(ctx context.Context, text string, topK int) ([]models.ScoredDoc, error) {
	qt := strings.TrimSpace(text)
	if qt == "" {
		return catalogOrder(e.docs, topK), nil
	}

	body := elasticSearchRequest{
		Size:           topK,
		TrackTotalHits: false,
		Query: map[string]any{
			"match": map[string]any{
				"bm25_text": map[string]any{"query": qt},
			},
		},
	}
	var resp elasticSearchResponse
	if err := e.client.DoJSON(ctx, http.MethodPost, e.indexURL()+"/_search", e.headers(), body, &resp); err != nil {
		return nil, fmt.Errorf("elastic search failed: %w", err)
	}

	out := make([]models.ScoredDoc, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		if h.ID == "" {
			continue
		}
		score := 0.0
		if h.Score != nil {
			score = *h.Score
		}
		out = append(out, models.ScoredDoc{
			DocID:  h.ID,
			Score:  score,
			Source: models.SourceBM25,
			Extra:  map[string]any{"rank": len(out) + 1},
		})
	}
	return out, nil
}

// IndexMapping is the mapping EnsureIndex creates: doc_id and category are
// keywords, the text fields are analyzed with the standard analyzer.
var IndexMapping = map[string]any{
	"mappings": map[string]any{
		"properties": map[string]any{
			"doc_id":    map[string]any{"type": "keyword"},
			"title":     map[string]any{"type": "text"},
			"text":      map[string]any{"type": "text"},
			"bm25_text": map[string]any{"type": "text"},
			"category":  map[string]any{"type": "keyword"},
		},
	},
}

func (e *Elastic) headers() map[string]string {
	return map[string]string{"Authorization": AuthorizationHeader(e.cfg.AuthHeader, e.cfg.APIKey)}
}

func (e *Elastic) indexURL() string {
	return fmt.Sprintf("%s/%s", e.cfg.BaseURL, e.cfg.Index)
}

// EnsureIndex creates the index with IndexMapping when it does not exist.
func (e *Elastic) EnsureIndex(ctx context.Context) (created bool, err error) {
	err = e.client.DoJSON(ctx, http.MethodGet, e.indexURL(), e.headers(), nil, nil)
	if err == nil {
		return false, nil
	}
	var perr *remote.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("elastic: failed to check index: %w", err)
	}
	if err := e.client.DoJSON(ctx, http.MethodPut, e.indexURL(), e.headers(), IndexMapping, nil); err != nil {
		return false, fmt.Errorf("elastic: failed to create index: %w", err)
	}
	return true, nil
}

// ElasticDoc is one document as stored in the index. Its _id is DocID.
type ElasticDoc struct {
	DocID    string `json:"doc_id"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	BM25Text string `json:"bm25_text"`
	Category string `json:"category"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string          `json:"_id"`
		Status int             `json:"status"`
		Error  json.RawMessage `json:"error"`
	} `json:"items"`
}

// Bulk indexes docs with one _bulk request and refreshes the index. Any
// per-item failure fails the whole call.
func (e *Elastic) Bulk(ctx context.Context, docs []ElasticDoc) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		action := map[string]any{"index": map[string]any{"_index": e.cfg.Index, "_id": d.DocID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elastic: failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("elastic: failed to encode document %s: %w", d.DocID, err)
		}
	}

	var resp bulkResponse
	url := fmt.Sprintf("%s/_bulk?refresh=true", e.cfg.BaseURL)
	if err := e.client.Do(ctx, http.MethodPost, url, e.headers(), "application/x-ndjson", buf.Bytes(), &resp); err != nil {
		return fmt.Errorf("elastic: bulk request failed: %w", err)
	}
	if resp.Errors {
		for _, item := range resp.Items {
			for op, r := range item {
				if len(r.Error) > 0 && string(r.Error) != "null" {
					return fmt.Errorf("elastic: bulk %s of %s failed (status %d): %s", op, r.ID, r.Status, r.Error)
				}
			}
		}
		return fmt.Errorf("elastic: bulk request reported errors")
	}
	return nil
}
