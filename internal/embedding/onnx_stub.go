//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

var errONNXUnavailable = errors.New("ONNX encoder requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXEncoder is a stub that returns an error when built without CGO
// (see onnx.go for the real implementation).
type ONNXEncoder struct{}

// NewONNXEncoder returns an error when built without CGO (ONNX not available).
func NewONNXEncoder(_ string, _, _, _ int) (*ONNXEncoder, error) {
	return nil, errONNXUnavailable
}

// Embed is not implemented without CGO.
func (e *ONNXEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errONNXUnavailable
}

// EmbedBatch is not implemented without CGO.
func (e *ONNXEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errONNXUnavailable
}

// Dimensions returns 0 without CGO.
func (e *ONNXEncoder) Dimensions() int {
	return 0
}

// Close is a no-op without CGO.
func (e *ONNXEncoder) Close() error {
	return nil
}
