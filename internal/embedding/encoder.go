// Package embedding provides text encoders that map text to fixed-dimension vectors.
package embedding

import (
	"context"
	"errors"
)

// ErrEmptyBatch is returned when EmbedBatch is called with no texts.
var ErrEmptyBatch = errors.New("embedding: empty batch")

// Encoder produces fixed-dimension vector embeddings for text. The dimension is
// fixed at construction and every vector an encoder returns has that length.
type Encoder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
