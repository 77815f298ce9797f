package embedding

import (
	"fmt"
	"time"

	"github.com/hyperjump/kensaku/internal/config"
)

// Backend identifies an encoder implementation.
type Backend string

const (
	// BackendMock is a deterministic hash-based encoder for tests and development.
	BackendMock Backend = "mock"
	// BackendONNX runs a local ONNX model. Requires CGO and the onnxruntime library.
	BackendONNX Backend = "onnx"
	// BackendOpenAI calls an OpenAI-compatible embeddings HTTP API.
	BackendOpenAI Backend = "openai"
)

// New creates an encoder for the configured backend.
// Supported backends: "mock" (default), "onnx", "openai".
func New(cfg *config.EmbeddingConfig) (Encoder, error) {
	switch Backend(cfg.Backend) {
	case BackendMock, "":
		return NewMockEncoder(cfg.Dimensions), nil
	case BackendONNX:
		return NewONNXEncoder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
	case BackendOpenAI:
		return NewOpenAIEncoder(OpenAIOptions{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s (supported: mock, onnx, openai)", cfg.Backend)
	}
}
