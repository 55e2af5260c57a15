package keyword

import (
	"context"
	"sort"

	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/pkg/utils"
)

const (
	// BM25K1 is the term-frequency saturation parameter.
	BM25K1 = 1.5
	// BM25B is the document-length normalization parameter.
	BM25B = 0.75
)

// BM25 scores every catalog document in memory. Terms are whitespace tokens of
// "title text" with no case folding. The idf term is (N-df+0.5)/(df+0.5) floored
// at zero, without the usual logarithm; scores are only comparable within this scorer.
type BM25 struct {
	docs  []*models.Document
	tf    []map[string]int
	dl    []int
	df    map[string]int
	n     float64
	avgdl float64
}

// NewBM25 builds the index once from the catalog documents.
func NewBM25(docs []*models.Document) *BM25 {
	b := &BM25{
		docs: docs,
		tf:   make([]map[string]int, len(docs)),
		dl:   make([]int, len(docs)),
		df:   make(map[string]int),
	}
	total := 0
	for i, d := range docs {
		tokens := utils.WhitespaceTokens(d.Title + " " + d.Text)
		counts := make(map[string]int, len(tokens))
		for _, t := range tokens {
			counts[t]++
		}
		for t := range counts {
			b.df[t]++
		}
		b.tf[i] = counts
		b.dl[i] = len(tokens)
		total += len(tokens)
	}
	n := len(docs)
	if n < 1 {
		n = 1
	}
	b.n = float64(n)
	b.avgdl = float64(total) / b.n
	return b
}

// Name returns "builtin".
func (b *BM25) Name() string {
	return "builtin"
}

func (b *BM25) idf(term string) float64 {
	df := float64(b.df[term])
	v := (b.n - df + 0.5) / (df + 0.5)
	if v < 0 {
		return 0
	}
	return v
}

// score returns the BM25 score of document i for the query tokens. Repeated
// query tokens contribute once per occurrence.
func (b *BM25) score(i int, queryTokens []string) float64 {
	dl := b.dl[i]
	if dl == 0 {
		dl = 1
	}
	avgdl := b.avgdl
	if avgdl == 0 {
		avgdl = 1
	}
	var s float64
	for _, term := range queryTokens {
		f := float64(b.tf[i][term])
		if f <= 0 {
			continue
		}
		denom := f + BM25K1*(1-BM25B+BM25B*(float64(dl)/avgdl))
		if denom < 1e-9 {
			denom = 1e-9
		}
		s += b.idf(term) * (f * (BM25K1 + 1)) / denom
	}
	return s
}

// Query returns the topK documents by descending score. Ties keep catalog order.
// A query with no tokens returns the catalog-order fallback.
func (b *BM25) Query(ctx context.Context, text string, topK int) ([]models.ScoredDoc, error) {
	queryTokens := utils.WhitespaceTokens(text)
	if len(queryTokens) == 0 {
		return catalogOrder(b.docs, topK), nil
	}

	idx := make([]int, len(b.docs))
	scores := make([]float64, len(b.docs))
	for i := range b.docs {
		idx[i] = i
		scores[i] = b.score(i, queryTokens)
	}
	sort.SliceStable(idx, func(x, y int) bool { return scores[idx[x]] > scores[idx[y]] })

	if topK < 0 {
		topK = 0
	}
	if topK < len(idx) {
		idx = idx[:topK]
	}
	out := make([]models.ScoredDoc, len(idx))
	for rank, i := range idx {
		out[rank] = models.ScoredDoc{
			DocID:  b.docs[i].DocID,
			Score:  scores[i],
			Source: models.SourceBM25,
			Extra:  map[string]any{"rank": rank + 1},
		}
	}
	return out, nil
}
