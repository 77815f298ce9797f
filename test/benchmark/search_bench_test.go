package benchmark

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/ingest"
	"github.com/hyperjump/kensaku/internal/vector"
)

func BenchmarkFlatL2Search(b *testing.B) {
	idx, _ := vector.NewFlatL2(384)
	vecs := make([][]float32, 1000)
	for i := 0; i < 1000; i++ {
		vecs[i] = make([]float32, 384)
		vecs[i][0] = float32(i) / 1000
	}
	_ = idx.Add(vecs)
	query := make([]float32, 384)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(query, 10)
	}
}

func BenchmarkChunker(b *testing.B) {
	chunker, _ := ingest.NewChunker(500, 50)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = chunker.Chunk(text)
	}
}

func BenchmarkMockEncoder_Embed(b *testing.B) {
	e := embedding.NewMockEncoder(384)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Embed(ctx, "benchmark query text for embedding")
	}
}
