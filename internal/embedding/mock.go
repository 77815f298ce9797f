package embedding

import (
	"context"
	"math"
)

// MockEncoder is a deterministic encoder for tests and development. It derives a
// fixed-dimension unit vector from the text hash so the same text always gets the
// same embedding.
type MockEncoder struct {
	dimensions int
}

// NewMockEncoder returns an encoder producing deterministic embeddings of the given dimension.
func NewMockEncoder(dimensions int) *MockEncoder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEncoder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEncoder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch encodes each text in the batch. An empty batch is an error.
func (e *MockEncoder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyBatch
	}
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEncoder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for MockEncoder.
func (e *MockEncoder) Close() error {
	return nil
}

// NormalizeL2 normalizes the vector in place to unit L2 norm.
func NormalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}
