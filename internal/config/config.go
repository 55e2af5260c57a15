// Package config loads vendor-set and pipeline profiles from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/kurabe/internal/filter"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when a vendor set or pipeline id is not defined.
var ErrNotFound = errors.New("not found")

// Default config file locations, relative to the working directory.
const (
	DefaultVendorsPath   = "templates/vendors.example.yaml"
	DefaultPipelinesPath = "templates/pipeline.example.yaml"
)

// VendorSet selects the concrete adapters a run uses.
type VendorSet struct {
	ID          string          `yaml:"-" json:"id"`
	Description string          `yaml:"description" json:"description,omitempty"`
	Embedding   EmbeddingConfig `yaml:"embedding" json:"embedding"`
	VectorDB    VectorDBConfig  `yaml:"vector_db" json:"vector_db"`
	BM25        BM25Config      `yaml:"bm25" json:"bm25"`
	Rerank      RerankConfig    `yaml:"rerank" json:"rerank"`
}

// EmbeddingConfig holds embedding provider settings. Secrets are never stored
// here; *_env fields name the environment variables that hold them.
type EmbeddingConfig struct {
	Provider             string `yaml:"provider" json:"provider"`
	Model                string `yaml:"model" json:"model,omitempty"`
	Dim                  int    `yaml:"dim" json:"dim,omitempty"`
	APIKeyEnv            string `yaml:"api_key_env" json:"api_key_env,omitempty"`
	BaseURLEnv           string `yaml:"base_url_env" json:"base_url_env,omitempty"`
	OutputDimensionality int    `yaml:"output_dimensionality" json:"output_dimensionality,omitempty"`
	ModelPath            string `yaml:"model_path" json:"model_path,omitempty"`
	LibraryPath          string `yaml:"library_path" json:"library_path,omitempty"`
	MaxTokens            int    `yaml:"max_tokens" json:"max_tokens,omitempty"`
	QueryCacheSize       int    `yaml:"query_cache_size" json:"query_cache_size,omitempty"`
}

// VectorDBConfig holds dense retrieval backend settings.
type VectorDBConfig struct {
	Provider    string `yaml:"provider" json:"provider"`
	EndpointEnv string `yaml:"endpoint_env" json:"endpoint_env,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env" json:"api_key_env,omitempty"`
	Index       string `yaml:"index" json:"index,omitempty"`
}

// BM25Config holds lexical retrieval backend settings.
type BM25Config struct {
	Provider      string  `yaml:"provider" json:"provider"`
	EndpointEnv   string  `yaml:"endpoint_env" json:"endpoint_env,omitempty"`
	APIKeyEnv     string  `yaml:"api_key_env" json:"api_key_env,omitempty"`
	AuthHeaderEnv string  `yaml:"auth_header_env" json:"auth_header_env,omitempty"`
	Index         string  `yaml:"index" json:"index,omitempty"`
	TitleBoost    float64 `yaml:"title_boost" json:"title_boost,omitempty"`
	Fuzziness     int     `yaml:"fuzziness" json:"fuzziness,omitempty"`
}

// RerankConfig holds reranker settings.
type RerankConfig struct {
	Provider    string `yaml:"provider" json:"provider"`
	Model       string `yaml:"model" json:"model,omitempty"`
	APIKeyEnv   string `yaml:"api_key_env" json:"api_key_env,omitempty"`
	EndpointEnv string `yaml:"endpoint_env" json:"endpoint_env,omitempty"`
}

// Step is one stage of a pipeline.
type Step string

const (
	StepBM25   Step = "bm25"
	StepDense  Step = "dense"
	StepFusion Step = "fusion"
	StepRerank Step = "rerank"
	StepFilter Step = "filter"
)

var knownSteps = map[Step]bool{
	StepBM25: true, StepDense: true, StepFusion: true, StepRerank: true, StepFilter: true,
}

// Pipeline is an ordered subset of steps plus their parameters.
type Pipeline struct {
	ID          string `yaml:"-" json:"id"`
	Description string `yaml:"description" json:"description,omitempty"`
	Steps       []Step `yaml:"steps" json:"steps"`
	Params      Params `yaml:"params" json:"params"`
}

// Has reports whether s is one of the pipeline's steps.
func (p *Pipeline) Has(s Step) bool {
	for _, st := range p.Steps {
		if st == s {
			return true
		}
	}
	return false
}

// Params are the per-step pipeline parameters.
type Params struct {
	// TopK is a legacy fallback for TopKDense.
	TopK       int          `yaml:"top_k" json:"top_k,omitempty"`
	TopKDense  int          `yaml:"top_k_dense" json:"top_k_dense"`
	TopKBM25   int          `yaml:"top_k_bm25" json:"top_k_bm25"`
	TopKFused  int          `yaml:"top_k_fused" json:"top_k_fused"`
	Fusion     FusionParams `yaml:"fusion" json:"fusion"`
	RerankTopK int          `yaml:"rerank_top_k" json:"rerank_top_k"`
	Filter     filter.Rules `yaml:"filter" json:"filter"`
}

// FusionParams configures the fusion step.
type FusionParams struct {
	Method string `yaml:"method" json:"method"`
	RRFK   int    `yaml:"rrf_k" json:"rrf_k"`
	// Alpha is a pointer so that an explicit 0 (lexical only) survives defaulting.
	Alpha *float64 `yaml:"alpha" json:"alpha"`
}

// AlphaValue returns Alpha, or 0.5 when unset.
func (f FusionParams) AlphaValue() float64 {
	if f.Alpha == nil {
		return 0.5
	}
	return *f.Alpha
}

type vendorFile struct {
	VendorSets map[string]*VendorSet `yaml:"vendor_sets"`
}

type pipelineFile struct {
	Pipelines map[string]*Pipeline `yaml:"pipelines"`
}

// LoadVendorSets reads, defaults and validates every vendor set in path.
// Relative model paths starting with "./" resolve against the file's directory.
func LoadVendorSets(path string) (map[string]*VendorSet, error) {
	var f vendorFile
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	configDir := filepath.Dir(path)
	out := make(map[string]*VendorSet, len(f.VendorSets))
	for id, vs := range f.VendorSets {
		if vs == nil {
			vs = &VendorSet{}
		}
		vs.ID = id
		ApplyVendorDefaults(vs)
		vs.Embedding.ModelPath = expandPath(vs.Embedding.ModelPath, configDir)
		if err := vs.Validate(); err != nil {
			return nil, fmt.Errorf("vendor set %q: %w", id, err)
		}
		out[id] = vs
	}
	return out, nil
}

// LoadPipelines reads, defaults and validates every pipeline in path.
func LoadPipelines(path string) (map[string]*Pipeline, error) {
	var f pipelineFile
	if err := decodeFile(path, &f); err != nil {
		return nil, err
	}
	out := make(map[string]*Pipeline, len(f.Pipelines))
	for id, p := range f.Pipelines {
		if p == nil {
			p = &Pipeline{}
		}
		p.ID = id
		ApplyPipelineDefaults(p)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", id, err)
		}
		out[id] = p
	}
	return out, nil
}

// VendorSetByID loads path and returns the vendor set named id.
func VendorSetByID(path, id string) (*VendorSet, error) {
	sets, err := LoadVendorSets(path)
	if err != nil {
		return nil, err
	}
	vs, ok := sets[id]
	if !ok {
		return nil, fmt.Errorf("vendor set %q: %w (available: %s)", id, ErrNotFound, strings.Join(SortedIDs(sets), ", "))
	}
	return vs, nil
}

// PipelineByID loads path and returns the pipeline named id.
func PipelineByID(path, id string) (*Pipeline, error) {
	pls, err := LoadPipelines(path)
	if err != nil {
		return nil, err
	}
	p, ok := pls[id]
	if !ok {
		return nil, fmt.Errorf("pipeline %q: %w (available: %s)", id, ErrNotFound, strings.Join(SortedIDs(pls), ", "))
	}
	return p, nil
}

// SortedIDs returns the keys of m in lexical order.
func SortedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// decodeFile decodes YAML strictly: unknown keys are errors. An empty file
// decodes to the zero value.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// expandPath resolves paths starting with "./" against configDir and leaves
// everything else untouched.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	return path
}
