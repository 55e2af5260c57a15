package vector

import "github.com/hyperjump/kurabe/pkg/utils"

// Cosine returns the cosine similarity of a and b (0 for empty, mismatched, or zero vectors).
func Cosine(a, b []float32) float64 {
	return utils.Cosine(a, b)
}
