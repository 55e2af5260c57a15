//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ErrONNXUnavailable is returned by the onnx provider in builds without CGO.
var ErrONNXUnavailable = errors.New("onnx embedder requires CGO: build with CGO_ENABLED=1 and install onnxruntime")

// ONNXEmbedder is a stub when built without CGO.
type ONNXEmbedder struct{}

// NewONNXEmbedder returns ErrONNXUnavailable.
func NewONNXEmbedder(ONNXConfig) (*ONNXEmbedder, error) {
	return nil, ErrONNXUnavailable
}

// EmbedTexts returns ErrONNXUnavailable.
func (e *ONNXEmbedder) EmbedTexts(context.Context, []string) ([][]float32, error) {
	return nil, ErrONNXUnavailable
}

// Dimensions returns 0.
func (e *ONNXEmbedder) Dimensions() int { return 0 }

// Close is a no-op.
func (e *ONNXEmbedder) Close() error { return nil }
