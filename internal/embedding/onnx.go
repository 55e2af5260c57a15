//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/kurabe/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a local sentence-embedding model with ONNX Runtime. It requires
// CGO and the onnxruntime shared library. The model must take BERT-style
// input_ids/attention_mask/token_type_ids and produce a pooled [1, dim] output.
type ONNXEmbedder struct {
	session    *ort.AdvancedSession
	io         *onnxIO
	dimensions int
	maxTokens  int
	tokenizer  Tokenizer
	mu         sync.Mutex
}

// onnxIO holds the tensors bound to the session. Run reads the inputs in place
// and overwrites the output.
type onnxIO struct {
	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	tokenTypeIDs  *ort.Tensor[int64]
	output        *ort.Tensor[float32]
}

func newONNXIO(maxTokens, dimensions int) (*onnxIO, error) {
	io := &onnxIO{}
	seq := ort.NewShape(1, int64(maxTokens))
	var err error
	if io.inputIDs, err = ort.NewEmptyTensor[int64](seq); err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	if io.attentionMask, err = ort.NewEmptyTensor[int64](seq); err != nil {
		io.destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	if io.tokenTypeIDs, err = ort.NewEmptyTensor[int64](seq); err != nil {
		io.destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	if io.output, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(dimensions))); err != nil {
		io.destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	return io, nil
}

func (io *onnxIO) inputs() []ort.ArbitraryTensor {
	return []ort.ArbitraryTensor{io.inputIDs, io.attentionMask, io.tokenTypeIDs}
}

func (io *onnxIO) load(ids, mask, types []int64) {
	copy(io.inputIDs.GetData(), ids)
	copy(io.attentionMask.GetData(), mask)
	copy(io.tokenTypeIDs.GetData(), types)
}

func (io *onnxIO) destroy() {
	if io.inputIDs != nil {
		_ = io.inputIDs.Destroy()
	}
	if io.attentionMask != nil {
		_ = io.attentionMask.Destroy()
	}
	if io.tokenTypeIDs != nil {
		_ = io.tokenTypeIDs.Destroy()
	}
	if io.output != nil {
		_ = io.output.Destroy()
	}
	*io = onnxIO{}
}

// NewONNXEmbedder loads the model at cfg.ModelPath. The runtime environment is
// initialized once per process.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx: model_path is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("onnx: dim must be positive")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultONNXMaxTokens
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	io, err := newONNXIO(maxTokens, cfg.Dimensions)
	if err != nil {
		return nil, err
	}
	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{cfg.outputName()},
		io.inputs(),
		[]ort.ArbitraryTensor{io.output},
		nil,
	)
	if err != nil {
		io.destroy()
		return nil, fmt.Errorf("failed to create ONNX session for %s: %w", cfg.ModelPath, err)
	}

	return &ONNXEmbedder{
		session:    session,
		io:         io,
		dimensions: cfg.Dimensions,
		maxTokens:  maxTokens,
		tokenizer:  &SimpleTokenizer{},
	}, nil
}

func (e *ONNXEmbedder) embed(text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, fmt.Errorf("onnx: embedder is closed")
	}
	e.io.load(e.tokenizer.Tokenize(text, e.maxTokens))
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	vec := make([]float32, e.dimensions)
	copy(vec, e.io.output.GetData())
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedTexts runs inference once per text. The session is shared, so calls
// are serialized.
func (e *ONNXEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.embed(text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and its tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	if e.io != nil {
		e.io.destroy()
		e.io = nil
	}
	return err
}

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment points the runtime at libraryPath (when set) before the
// first initialization. Later library paths are ignored.
func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}
