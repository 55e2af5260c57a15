// Package rerank reorders retrieval candidates against the query text.
package rerank

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/kurabe/internal/models"
)

// Reranker scores candidate documents against a query. Results are sorted by
// descending score and hold at most topK entries.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []*models.Document, topK int) ([]models.ScoredDoc, error)
	Name() string
}

// Provider names a reranker backend.
type Provider string

const (
	// ProviderMock is an alias of ProviderOverlap kept for vendor files that name the heuristic "mock".
	ProviderMock    Provider = "mock"
	ProviderOverlap Provider = "overlap"
	ProviderCohere  Provider = "cohere"
)

// ParseProvider validates a rerank provider name. Empty means the overlap heuristic.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderMock, ProviderOverlap, "":
		return ProviderOverlap, nil
	case ProviderCohere:
		return ProviderCohere, nil
	default:
		return "", fmt.Errorf("unknown rerank provider: %s (supported: mock, overlap, cohere)", s)
	}
}

func sortAndTruncate(scored []models.ScoredDoc, topK int) []models.ScoredDoc {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK < 0 {
		topK = 0
	}
	if topK < len(scored) {
		scored = scored[:topK]
	}
	for i := range scored {
		scored[i].Extra = map[string]any{"rank": i + 1}
	}
	return scored
}
