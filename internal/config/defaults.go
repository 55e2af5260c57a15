package config

import (
	"strings"

	"github.com/hyperjump/kurabe/internal/embedding"
	"github.com/hyperjump/kurabe/internal/search"
)

// Pipeline parameter defaults.
const (
	DefaultTopKDense  = 50
	DefaultTopKBM25   = 50
	DefaultTopKFused  = 50
	DefaultRerankTopK = 20
	DefaultIndex      = "products"
)

// ApplyVendorDefaults sets default values for any zero values in vs.
func ApplyVendorDefaults(vs *VendorSet) {
	vs.Embedding.Provider = normalize(vs.Embedding.Provider, string(embedding.ProviderMock))
	if vs.Embedding.Provider == string(embedding.ProviderMock) && vs.Embedding.Dim == 0 {
		vs.Embedding.Dim = embedding.DefaultMockDimensions
	}
	if vs.Embedding.Provider == string(embedding.ProviderONNX) && vs.Embedding.MaxTokens == 0 {
		vs.Embedding.MaxTokens = embedding.DefaultONNXMaxTokens
	}
	if vs.Embedding.QueryCacheSize == 0 {
		vs.Embedding.QueryCacheSize = embedding.DefaultQueryCacheSize
	}

	vs.VectorDB.Provider = normalize(vs.VectorDB.Provider, "local")
	if vs.VectorDB.Index == "" {
		vs.VectorDB.Index = DefaultIndex
	}

	vs.BM25.Provider = normalize(vs.BM25.Provider, "builtin")
	if vs.BM25.Index == "" {
		vs.BM25.Index = DefaultIndex
	}

	vs.Rerank.Provider = normalize(vs.Rerank.Provider, "mock")
}

// ApplyPipelineDefaults fills omitted parameters with their documented
// defaults. Omitted top-k values never fall through to a zero limit.
func ApplyPipelineDefaults(p *Pipeline) {
	for i, s := range p.Steps {
		p.Steps[i] = Step(strings.ToLower(strings.TrimSpace(string(s))))
	}
	if p.Params.TopKDense == 0 {
		p.Params.TopKDense = p.Params.TopK
	}
	if p.Params.TopKDense == 0 {
		p.Params.TopKDense = DefaultTopKDense
	}
	if p.Params.TopKBM25 == 0 {
		p.Params.TopKBM25 = DefaultTopKBM25
	}
	if p.Params.TopKFused == 0 {
		p.Params.TopKFused = DefaultTopKFused
	}
	if p.Params.RerankTopK == 0 {
		p.Params.RerankTopK = DefaultRerankTopK
	}
	p.Params.Fusion.Method = normalize(p.Params.Fusion.Method, string(search.MethodRRF))
	if p.Params.Fusion.RRFK == 0 {
		p.Params.Fusion.RRFK = search.DefaultRRFConstant
	}
	if p.Params.Fusion.Alpha == nil {
		a := search.DefaultAlpha
		p.Params.Fusion.Alpha = &a
	}
}

func normalize(s, def string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	return s
}
