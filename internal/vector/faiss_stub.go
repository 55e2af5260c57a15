//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/kurabe/internal/models"
)

// ErrFAISSUnavailable is returned by the faiss provider in builds without FAISS.
// Build with -tags=faiss and install libfaiss_c to enable it.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install the FAISS C library")

// FAISSIndex is a stub when FAISS is not compiled in.
type FAISSIndex struct{}

// NewFAISSIndex returns ErrFAISSUnavailable.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

// BuildFAISSIndex returns ErrFAISSUnavailable.
func BuildFAISSIndex(docs []*models.Document, embeddings [][]float32) (*FAISSIndex, error) {
	return nil, ErrFAISSUnavailable
}

// Name returns "faiss".
func (f *FAISSIndex) Name() string {
	return string(ProviderFAISS)
}

// Query returns ErrFAISSUnavailable.
func (f *FAISSIndex) Query(ctx context.Context, vec []float32, topK int) ([]models.ScoredDoc, error) {
	return nil, ErrFAISSUnavailable
}

// Size returns 0.
func (f *FAISSIndex) Size() int {
	return 0
}

// Close is a no-op.
func (f *FAISSIndex) Close() error {
	return nil
}
