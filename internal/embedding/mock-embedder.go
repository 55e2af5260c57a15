package embedding

import (
	"context"
	"crypto/sha256"

	"github.com/hyperjump/kurabe/pkg/utils"
)

// DefaultMockDimensions is the vector size of MockEmbedder when none is configured.
const DefaultMockDimensions = 128

// MockEmbedder is a deterministic embedder that needs no external service. Each
// vector is the SHA-256 digest of the text, bytes scaled to [0,1] and cycled to
// the configured size, then L2-normalized. Useful for wiring and regression runs,
// not for semantic quality.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock embedder of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultMockDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// EmbedTexts returns one deterministic vector per text.
func (e *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *MockEmbedder) embed(text string) []float32 {
	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, e.dimensions)
	for i := range vec {
		vec[i] = float32(float64(digest[i%len(digest)]) / 255.0)
	}
	utils.NormalizeL2(vec)
	return vec
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}
