package embedding

// DefaultONNXMaxTokens is the sequence length used when none is configured.
const DefaultONNXMaxTokens = 256

// defaultONNXOutput is the pooled output tensor name of sentence-transformers exports.
const defaultONNXOutput = "output"

// ONNXConfig configures the local ONNX embedder.
type ONNXConfig struct {
	ModelPath   string
	LibraryPath string // onnxruntime shared library; empty uses the runtime default
	Dimensions  int
	MaxTokens   int
	// OutputName overrides the pooled output tensor name.
	OutputName string
}

func (c ONNXConfig) outputName() string {
	if c.OutputName == "" {
		return defaultONNXOutput
	}
	return c.OutputName
}
