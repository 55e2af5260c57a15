package rerank

import (
	"context"

	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/pkg/utils"
)

// Overlap scores a document by the share of distinct query tokens it contains:
// |q ∩ d| / |q| over lowercase Unicode word tokens. It is a deterministic
// wiring check, not a semantic model.
type Overlap struct{}

// NewOverlap returns the overlap reranker.
func NewOverlap() *Overlap {
	return &Overlap{}
}

// Name returns "overlap".
func (o *Overlap) Name() string {
	return string(ProviderOverlap)
}

// Rerank scores every doc; equal scores keep input order.
func (o *Overlap) Rerank(ctx context.Context, query string, docs []*models.Document, topK int) ([]models.ScoredDoc, error) {
	q := utils.TokenSet(query)
	scored := make([]models.ScoredDoc, 0, len(docs))
	for _, d := range docs {
		scored = append(scored, models.ScoredDoc{
			DocID:  d.DocID,
			Score:  overlapScore(q, utils.TokenSet(d.Title+" "+d.Text)),
			Source: models.SourceRerank,
		})
	}
	return sortAndTruncate(scored, topK), nil
}

func overlapScore(q, d map[string]struct{}) float64 {
	if len(q) == 0 || len(d) == 0 {
		return 0
	}
	hits := 0
	for t := range q {
		if _, ok := d[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(q))
}
