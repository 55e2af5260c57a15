package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/internal/remote"
)

// DefaultPointNamespace is the UUIDv5 namespace used to derive point ids from doc_ids.
var DefaultPointNamespace = uuid.NameSpaceDNS

// QdrantConfig configures a Qdrant collection client.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	// Namespace derives stable point ids from doc_ids. Zero value means DefaultPointNamespace.
	Namespace uuid.UUID
}

// Qdrant searches and maintains a Qdrant collection whose points carry the
// catalog doc_id in payload["doc_id"].
type Qdrant struct {
	cfg    QdrantConfig
	client *remote.Client
}

// NewQdrant returns a Qdrant client. The collection defaults to "products".
func NewQdrant(cfg QdrantConfig, client *remote.Client) (*Qdrant, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("qdrant: URL is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "products"
	}
	if cfg.Namespace == uuid.Nil {
		cfg.Namespace = DefaultPointNamespace
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if client == nil {
		client = remote.NewClient("qdrant")
	}
	return &Qdrant{cfg: cfg, client: client}, nil
}

// Name returns "qdrant".
func (q *Qdrant) Name() string {
	return string(ProviderQdrant)
}

// PointID returns the deterministic point id (UUIDv5) for a doc_id.
func (q *Qdrant) PointID(docID string) string {
	return uuid.NewSHA1(q.cfg.Namespace, []byte(docID)).String()
}

func (q *Qdrant) headers() map[string]string {
	return map[string]string{"api-key": q.cfg.APIKey}
}

func (q *Qdrant) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", q.cfg.URL, q.cfg.Collection)
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
	WithVector  bool      `json:"with_vector"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      json.RawMessage `json:"id"`
		Score   float64         `json:"score"`
		Payload map[string]any  `json:"payload"`
	} `json:"result"`
}

// Query runs a points search. The doc_id comes from the payload; the raw point id
// is used only when the payload has none. An empty vector returns no results.
func (q *Qdrant) Query(ctx context.Context, vec []float32, topK int) ([]models.ScoredDoc, error) {
	if len(vec) == 0 {
		return []models.ScoredDoc{}, nil
	}
	body := qdrantSearchRequest{Vector: vec, Limit: topK, WithPayload: true, WithVector: false}

	var resp qdrantSearchResponse
	if err := q.client.DoJSON(ctx, http.MethodPost, q.collectionURL()+"/points/search", q.headers(), body, &resp); err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	out := make([]models.ScoredDoc, 0, len(resp.Result))
	for _, item := range resp.Result {
		docID := payloadDocID(item.Payload)
		if docID == "" {
			docID = rawPointID(item.ID)
		}
		if docID == "" {
			continue
		}
		out = append(out, models.ScoredDoc{
			DocID:  docID,
			Score:  item.Score,
			Source: models.SourceDense,
			Extra:  map[string]any{"rank": len(out) + 1},
		})
	}
	return out, nil
}

func payloadDocID(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	s, _ := payload["doc_id"].(string)
	return strings.TrimSpace(s)
}

// rawPointID renders a string or numeric point id; null or missing ids give "".
func rawPointID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// EnsureCollection creates the collection with cosine distance when it does not exist.
func (q *Qdrant) EnsureCollection(ctx context.Context, dim int) (created bool, err error) {
	err = q.client.DoJSON(ctx, http.MethodGet, q.collectionURL(), q.headers(), nil, nil)
	if err == nil {
		return false, nil
	}
	var perr *remote.ProviderError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusNotFound {
		return false, fmt.Errorf("qdrant: failed to check collection: %w", err)
	}

	body := map[string]any{"vectors": map[string]any{"size": dim, "distance": "Cosine"}}
	if err := q.client.DoJSON(ctx, http.MethodPut, q.collectionURL(), q.headers(), body, nil); err != nil {
		return false, fmt.Errorf("qdrant: failed to create collection: %w", err)
	}
	return true, nil
}

// Point is a vector with its payload, keyed by doc_id.
type Point struct {
	DocID   string
	Vector  []float32
	Payload map[string]any
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes points and waits for them to be applied. Each point's payload
// always carries its doc_id.
func (q *Qdrant) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := struct {
		Points []qdrantPoint `json:"points"`
	}{Points: make([]qdrantPoint, len(points))}
	for i, p := range points {
		payload := make(map[string]any, len(p.Payload)+1)
		for k, v := range p.Payload {
			payload[k] = v
		}
		payload["doc_id"] = p.DocID
		body.Points[i] = qdrantPoint{ID: q.PointID(p.DocID), Vector: p.Vector, Payload: payload}
	}
	if err := q.client.DoJSON(ctx, http.MethodPut, q.collectionURL()+"/points?wait=true", q.headers(), body, nil); err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}
