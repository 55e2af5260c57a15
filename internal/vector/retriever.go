// Package vector provides dense retrieval: a brute-force cosine index over the
// catalog, an optional FAISS flat index and a Qdrant adapter.
package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/kurabe/internal/models"
)

// Retriever ranks catalog documents for a query vector.
type Retriever interface {
	Query(ctx context.Context, vec []float32, topK int) ([]models.ScoredDoc, error)
	Name() string
}

// ProviderType names a dense retrieval backend.
type ProviderType string

const (
	// ProviderLocal embeds the catalog once and scores it by brute-force cosine.
	ProviderLocal ProviderType = "local"
	// ProviderQdrant queries a Qdrant collection indexed with payload doc_id.
	ProviderQdrant ProviderType = "qdrant"
	// ProviderFAISS embeds the catalog into a FAISS flat inner-product index.
	// Only available in builds tagged faiss.
	ProviderFAISS ProviderType = "faiss"
)

// ParseProviderType validates a vector_db provider name. Empty means local.
func ParseProviderType(s string) (ProviderType, error) {
	switch ProviderType(s) {
	case ProviderLocal, "":
		return ProviderLocal, nil
	case ProviderQdrant, ProviderFAISS:
		return ProviderType(s), nil
	default:
		return "", fmt.Errorf("unknown vector_db provider: %s (supported: local, qdrant, faiss)", s)
	}
}
