package config

import (
	"errors"
	"fmt"

	"github.com/hyperjump/kurabe/internal/embedding"
	"github.com/hyperjump/kurabe/internal/keyword"
	"github.com/hyperjump/kurabe/internal/rerank"
	"github.com/hyperjump/kurabe/internal/search"
	"github.com/hyperjump/kurabe/internal/vector"
)

// Validate checks provider names and numeric settings of vs.
func (vs *VendorSet) Validate() error {
	var errs []error
	if _, err := embedding.ParseProvider(vs.Embedding.Provider); err != nil {
		errs = append(errs, err)
	}
	if vs.Embedding.Dim < 0 || vs.Embedding.OutputDimensionality < 0 || vs.Embedding.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("embedding dimensions and max_tokens must not be negative"))
	}
	if vs.Embedding.Provider == string(embedding.ProviderONNX) && vs.Embedding.ModelPath == "" {
		errs = append(errs, fmt.Errorf("embedding.model_path is required for the onnx provider"))
	}
	if _, err := vector.ParseProviderType(vs.VectorDB.Provider); err != nil {
		errs = append(errs, err)
	}
	if _, err := keyword.ParseProviderType(vs.BM25.Provider); err != nil {
		errs = append(errs, err)
	}
	if vs.BM25.Fuzziness < 0 || vs.BM25.Fuzziness > 2 {
		errs = append(errs, fmt.Errorf("bm25.fuzziness must be between 0 and 2"))
	}
	if _, err := rerank.ParseProvider(vs.Rerank.Provider); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks step names and parameter ranges of p.
func (p *Pipeline) Validate() error {
	var errs []error
	if len(p.Steps) == 0 {
		errs = append(errs, fmt.Errorf("steps must not be empty"))
	}
	seen := make(map[Step]bool, len(p.Steps))
	for _, s := range p.Steps {
		if !knownSteps[s] {
			errs = append(errs, fmt.Errorf("unknown step: %q (supported: bm25, dense, fusion, rerank, filter)", s))
			continue
		}
		if seen[s] {
			errs = append(errs, fmt.Errorf("duplicate step: %q", s))
		}
		seen[s] = true
	}
	pr := p.Params
	if pr.TopK < 0 || pr.TopKDense < 0 || pr.TopKBM25 < 0 || pr.TopKFused < 0 || pr.RerankTopK < 0 {
		errs = append(errs, fmt.Errorf("top-k parameters must not be negative"))
	}
	if _, err := search.ParseMethod(pr.Fusion.Method); err != nil {
		errs = append(errs, err)
	}
	if pr.Fusion.RRFK < 0 {
		errs = append(errs, fmt.Errorf("fusion.rrf_k must not be negative"))
	}
	if a := pr.Fusion.AlphaValue(); a < 0 || a > 1 {
		errs = append(errs, fmt.Errorf("fusion.alpha must be within [0, 1], got %v", a))
	}
	return errors.Join(errs...)
}
