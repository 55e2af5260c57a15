//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/hyperjump/kurabe/internal/models"
	"github.com/hyperjump/kurabe/pkg/utils"
)

// FAISSIndex is an exact inner-product index over L2-normalized catalog
// vectors, so scores equal cosine similarity. FAISS labels are catalog positions.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	docIDs     []string
	mu         sync.RWMutex
}

// NewFAISSIndex creates an empty flat inner-product index.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	var index *C.FaissIndexFlatIP
	ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, dimensions: dimensions}, nil
}

// BuildFAISSIndex adds docs with embeddings computed in the same catalog order.
func BuildFAISSIndex(docs []*models.Document, embeddings [][]float32) (*FAISSIndex, error) {
	if len(docs) != len(embeddings) {
		return nil, fmt.Errorf("document/vector count mismatch: %d docs, %d vectors", len(docs), len(embeddings))
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("cannot build a FAISS index over an empty catalog")
	}
	f, err := NewFAISSIndex(len(embeddings[0]))
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.DocID
	}
	if err := f.Add(context.Background(), ids, embeddings); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add normalizes and appends vectors for ids.
func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
		}
		row := flat[i*f.dimensions : (i+1)*f.dimensions]
		copy(row, vec)
		utils.NormalizeL2(row)
	}

	ret := C.faiss_Index_add(f.index, C.idx_t(n), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	f.docIDs = append(f.docIDs, ids...)
	return nil
}

// Name returns "faiss".
func (f *FAISSIndex) Name() string {
	return string(ProviderFAISS)
}

// Query returns the topK documents by descending cosine similarity.
func (f *FAISSIndex) Query(ctx context.Context, vec []float32, topK int) ([]models.ScoredDoc, error) {
	if len(vec) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if topK > len(f.docIDs) {
		topK = len(f.docIDs)
	}
	if topK <= 0 {
		return []models.ScoredDoc{}, nil
	}

	query := make([]float32, len(vec))
	copy(query, vec)
	utils.NormalizeL2(query)

	distances := make([]float32, topK)
	labels := make([]int64, topK)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(topK),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	out := make([]models.ScoredDoc, 0, topK)
	for i := 0; i < topK; i++ {
		label := labels[i]
		if label < 0 || int(label) >= len(f.docIDs) {
			continue
		}
		out = append(out, models.ScoredDoc{
			DocID:  f.docIDs[label],
			Score:  float64(distances[i]),
			Source: models.SourceDense,
			Extra:  map[string]any{"rank": len(out) + 1},
		})
	}
	return out, nil
}

// Size returns the number of indexed vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.docIDs)
}

// Close frees the FAISS index.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
