// Package search provides rank fusion of dense and lexical result lists.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/pkg/utils"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// DefaultAlpha weights dense and lexical scores equally in weighted fusion.
const DefaultAlpha = 0.5

// Method selects a fusion algorithm.
type Method string

const (
	MethodRRF      Method = "rrf"
	MethodWeighted Method = "weighted"
)

// ParseMethod validates a fusion method name. Empty means RRF.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case MethodRRF, "":
		return MethodRRF, nil
	case MethodWeighted:
		return MethodWeighted, nil
	default:
		return "", fmt.Errorf("unknown fusion method: %s (supported: rrf, weighted)", s)
	}
}

// Params configures Fuse.
type Params struct {
	Method Method
	RRFK   int
	Alpha  float64
	TopK   int
}

// Fuse combines dense and sparse with the configured method.
func Fuse(dense, sparse []models.ScoredDoc, p Params) []models.ScoredDoc {
	if p.Method == MethodWeighted {
		return Weighted(dense, sparse, p.Alpha, p.TopK)
	}
	return RRF(dense, sparse, p.RRFK, p.TopK)
}

// accumulator sums per-document scores while remembering first-seen order,
// so equal fused scores keep dense-list order, then sparse-list order.
type accumulator struct {
	order  []string
	scores map[string]float64
}

func newAccumulator(capacity int) *accumulator {
	return &accumulator{order: make([]string, 0, capacity), scores: make(map[string]float64, capacity)}
}

func (a *accumulator) add(docID string, v float64) {
	if _, ok := a.scores[docID]; !ok {
		a.order = append(a.order, docID)
	}
	a.scores[docID] += v
}

func (a *accumulator) ranked(topK int) []models.ScoredDoc {
	out := make([]models.ScoredDoc, len(a.order))
	for i, id := range a.order {
		out[i] = models.ScoredDoc{DocID: id, Score: a.scores[id], Source: models.SourceFused}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK < 0 {
		topK = 0
	}
	if topK < len(out) {
		out = out[:topK]
	}
	for i := range out {
		out[i].Extra = map[string]any{"rank": i + 1}
	}
	return out
}

// RRF combines dense and sparse results using Reciprocal Rank Fusion:
// score(d) = Σ 1/(rrfK + rank) over the lists containing d, with 1-based ranks.
// rrfK <= 0 uses DefaultRRFConstant.
func RRF(dense, sparse []models.ScoredDoc, rrfK, topK int) []models.ScoredDoc {
	if rrfK <= 0 {
		rrfK = DefaultRRFConstant
	}
	acc := newAccumulator(len(dense) + len(sparse))
	for _, list := range [][]models.ScoredDoc{dense, sparse} {
		for i, sd := range list {
			acc.add(sd.DocID, 1.0/float64(rrfK+i+1))
		}
	}
	return acc.ranked(topK)
}

// MinMaxNormalize maps each list score into [0,1]. When every score is equal the
// list normalizes to all zeros.
func MinMaxNormalize(list []models.ScoredDoc) map[string]float64 {
	out := make(map[string]float64, len(list))
	if len(list) == 0 {
		return out
	}
	scores := make([]float64, len(list))
	for i, sd := range list {
		scores[i] = sd.Score
	}
	lo, hi := utils.MinMax(scores)
	for _, sd := range list {
		if hi <= lo {
			out[sd.DocID] = 0
			continue
		}
		out[sd.DocID] = (sd.Score - lo) / (hi - lo)
	}
	return out
}

// Weighted fuses min-max normalized lists as alpha*dense + (1-alpha)*sparse over
// the union of both lists. A document missing from a list gets 0 from it.
func Weighted(dense, sparse []models.ScoredDoc, alpha float64, topK int) []models.ScoredDoc {
	nd := MinMaxNormalize(dense)
	ns := MinMaxNormalize(sparse)

	acc := newAccumulator(len(dense) + len(sparse))
	for _, list := range [][]models.ScoredDoc{dense, sparse} {
		for _, sd := range list {
			if _, seen := acc.scores[sd.DocID]; seen {
				continue
			}
			acc.add(sd.DocID, alpha*nd[sd.DocID]+(1-alpha)*ns[sd.DocID])
		}
	}
	return acc.ranked(topK)
}
