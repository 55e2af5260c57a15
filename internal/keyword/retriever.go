// Package keyword provides lexical (BM25) retrieval over the catalog: an in-memory
// scorer, an Elasticsearch adapter, and a Bleve-backed index.
package keyword

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kurabe/internal/models"
)

// Retriever ranks catalog documents for a query text.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]models.ScoredDoc, error)
	Name() string
}

// catalogOrder returns the first min(topK, len(docs)) documents with score 0.
// Every lexical retriever answers an empty query this way so that a blank
// query still yields a deterministic top_k.
func catalogOrder(docs []*models.Document, topK int) []models.ScoredDoc {
	n := topK
	if n > len(docs) {
		n = len(docs)
	}
	if n < 0 {
		n = 0
	}
	out := make([]models.ScoredDoc, n)
	for i := 0; i < n; i++ {
		out[i] = models.ScoredDoc{
			DocID:  docs[i].DocID,
			Score:  0,
			Source: models.SourceBM25,
			Extra:  map[string]any{"rank": i + 1},
		}
	}
	return out
}

// ProviderType names a lexical retrieval backend.
type ProviderType string

const (
	// ProviderBuiltin scores the catalog in memory with BM25.
	ProviderBuiltin ProviderType = "builtin"
	// ProviderElastic queries an Elasticsearch index keyed by doc_id.
	ProviderElastic ProviderType = "elastic"
	// ProviderBleve builds an in-memory Bleve index over the catalog.
	ProviderBleve ProviderType = "bleve"
)

// ParseProviderType validates a bm25 provider name. Empty means builtin.
func ParseProviderType(s string) (ProviderType, error) {
	switch p := ProviderType(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderBuiltin, nil
	case ProviderBuiltin, ProviderElastic, ProviderBleve:
		return p, nil
	default:
		return "", fmt.Errorf("unknown bm25 provider: %s (supported: builtin, elastic, bleve)", s)
	}
}
