//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"fmt"
)

var errNoCGO = fmt.Errorf("%w: ONNX embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime", ErrEmbedding)

// ONNXEmbedder stub type when built without CGO (see onnx.go for real implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO (ONNX not available).
func NewONNXEmbedder(_ string, _, _, _ int, _ Prefixes) (*ONNXEmbedder, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) EmbedPassages(_ context.Context, _ []string) ([][]float32, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) Dimensions() int { return 0 }

func (e *ONNXEmbedder) Close() error { return nil }
