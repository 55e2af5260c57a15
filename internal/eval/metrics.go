// Package eval computes rank-quality metrics over predicted doc id lists.
//
// Relevance is binary: a predicted id is relevant when it is in the gold set.
package eval

import (
	"fmt"
	"math"
)

// DefaultK is the cutoff the pipeline evaluates at.
const DefaultK = 10

// Metric key names used in detail logs, summaries and reports.
const (
	KeyMRR = "mrr"
)

// PrecisionKey returns "precision@k".
func PrecisionKey(k int) string { return fmt.Sprintf("precision@%d", k) }

// RecallKey returns "recall@k".
func RecallKey(k int) string { return fmt.Sprintf("recall@%d", k) }

// NDCGKey returns "ndcg@k".
func NDCGKey(k int) string { return fmt.Sprintf("ndcg@%d", k) }

// Keys returns the metric keys for cutoff k in reporting order.
func Keys(k int) []string {
	return []string{PrecisionKey(k), RecallKey(k), KeyMRR, NDCGKey(k)}
}

// Metrics maps metric key to value.
type Metrics map[string]float64

func goldSet(gold []string) map[string]struct{} {
	set := make(map[string]struct{}, len(gold))
	for _, id := range gold {
		set[id] = struct{}{}
	}
	return set
}

func hitsAtK(pred []string, gold map[string]struct{}, k int) int {
	if k < len(pred) {
		pred = pred[:k]
	}
	hits := 0
	for _, id := range pred {
		if _, ok := gold[id]; ok {
			hits++
		}
	}
	return hits
}

// PrecisionAtK is the number of hits in pred[:k] divided by k. The
// denominator stays k even when pred is shorter.
func PrecisionAtK(pred, gold []string, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(hitsAtK(pred, goldSet(gold), k)) / float64(k)
}

// RecallAtK is the number of hits in pred[:k] divided by the gold set size.
func RecallAtK(pred, gold []string, k int) float64 {
	g := goldSet(gold)
	if len(g) == 0 || k <= 0 {
		return 0
	}
	return float64(hitsAtK(pred, g, k)) / float64(len(g))
}

// MRR is the reciprocal of the 1-based position of the first hit.
func MRR(pred, gold []string) float64 {
	g := goldSet(gold)
	if len(g) == 0 {
		return 0
	}
	for i, id := range pred {
		if _, ok := g[id]; ok {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// NDCGAtK uses a 1/sqrt(rank) discount, not 1/log2(rank+1). Stored benchmark
// results depend on this exact form.
func NDCGAtK(pred, gold []string, k int) float64 {
	g := goldSet(gold)
	if len(g) == 0 || k <= 0 {
		return 0
	}
	if k < len(pred) {
		pred = pred[:k]
	}
	dcg := 0.0
	for i, id := range pred {
		if _, ok := g[id]; ok {
			dcg += 1 / math.Sqrt(float64(i+1))
		}
	}
	ideal := len(g)
	if k < ideal {
		ideal = k
	}
	idcg := 0.0
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Sqrt(float64(i+1))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// CaseMetrics computes all four metrics for one case at cutoff k.
func CaseMetrics(pred, gold []string, k int) Metrics {
	return Metrics{
		PrecisionKey(k): PrecisionAtK(pred, gold, k),
		RecallKey(k):    RecallAtK(pred, gold, k),
		KeyMRR:          MRR(pred, gold),
		NDCGKey(k):      NDCGAtK(pred, gold, k),
	}
}

// Summary is the mean of per-case metrics.
type Summary struct {
	NEval   int     `json:"n_eval"`
	Metrics Metrics `json:"metrics"`
}

// Aggregate averages every key over perCase. Keys missing from a case count
// as 0. An empty input yields NEval 0 and the default keys at 0.
func Aggregate(perCase []Metrics) Summary {
	if len(perCase) == 0 {
		out := make(Metrics, 4)
		for _, k := range Keys(DefaultK) {
			out[k] = 0
		}
		return Summary{NEval: 0, Metrics: out}
	}
	sums := make(Metrics)
	for _, m := range perCase {
		for k, v := range m {
			sums[k] += v
		}
	}
	n := float64(len(perCase))
	for k := range sums {
		sums[k] /= n
	}
	return Summary{NEval: len(perCase), Metrics: sums}
}
