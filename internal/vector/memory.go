package vector

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/kurabe/internal/models"
)

// MemoryIndex scores every catalog document by cosine similarity. It is built
// once per run and read-only afterwards.
type MemoryIndex struct {
	docs    []*models.Document
	vectors map[string][]float32
}

// NewMemoryIndex pairs the catalog with its document vectors keyed by doc_id.
// Documents without a vector are never returned.
func NewMemoryIndex(docs []*models.Document, vectors map[string][]float32) *MemoryIndex {
	vecs := make(map[string][]float32, len(vectors))
	for id, v := range vectors {
		cp := make([]float32, len(v))
		copy(cp, v)
		vecs[id] = cp
	}
	return &MemoryIndex{docs: docs, vectors: vecs}
}

// BuildMemoryIndex pairs docs with embeddings computed in the same catalog order.
func BuildMemoryIndex(docs []*models.Document, embeddings [][]float32) (*MemoryIndex, error) {
	if len(docs) != len(embeddings) {
		return nil, fmt.Errorf("document/vector count mismatch: %d docs, %d vectors", len(docs), len(embeddings))
	}
	vectors := make(map[string][]float32, len(docs))
	for i, d := range docs {
		vectors[d.DocID] = embeddings[i]
	}
	return NewMemoryIndex(docs, vectors), nil
}

// Name returns "local".
func (m *MemoryIndex) Name() string {
	return string(ProviderLocal)
}

// Size returns the number of documents with a vector.
func (m *MemoryIndex) Size() int {
	return len(m.vectors)
}

// Query returns the topK documents by descending cosine similarity. Ties keep
// catalog order. Zero-norm or mismatched vectors score 0.
func (m *MemoryIndex) Query(ctx context.Context, vec []float32, topK int) ([]models.ScoredDoc, error) {
	scored := make([]models.ScoredDoc, 0, len(m.docs))
	for _, d := range m.docs {
		v, ok := m.vectors[d.DocID]
		if !ok {
			continue
		}
		scored = append(scored, models.ScoredDoc{
			DocID:  d.DocID,
			Score:  Cosine(vec, v),
			Source: models.SourceDense,
		})
	}
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
	return scored, nil
}
