package query

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(embedding.NewMockEncoder(32), t.TempDir(), "index", zap.NewNop())
	require.NoError(t, err)
	svc, err := NewService(st, 2, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, st
}

func TestQueryNotReady(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Query(context.Background(), "anything", 5, 0.0)
	assert.True(t, errors.Is(err, ErrNotReady))
}

func TestQueryReturnsMatches(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, []string{"alpha", "beta", "gamma"}, nil))

	results, err := svc.Query(ctx, "beta", 0, 0.0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "beta", results[0].Text)
	assert.Equal(t, 1.0, results[0].Score)
	assert.LessOrEqual(t, len(results), DefaultTopK, "topK <= 0 falls back to the default")
}

func TestIngestAssignsID(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, "doc", nil)
	assert.True(t, errors.Is(err, ErrNotReady), "ingest before the store is ready")

	require.NoError(t, st.Load())
	id, err := svc.Ingest(ctx, "doc", map[string]interface{}{"source": "test"})
	require.NoError(t, err)
	assert.Equal(t, "0", id)
	assert.Equal(t, 1, st.Count())
}

func TestSaveStore(t *testing.T) {
	svc, st := newTestService(t)
	assert.True(t, errors.Is(svc.SaveStore(), ErrNotReady))

	require.NoError(t, st.Add(context.Background(), []string{"doc"}, nil))
	require.NoError(t, svc.SaveStore())
}

func TestHealthAndStats(t *testing.T) {
	svc, st := newTestService(t)

	health := svc.Health()
	assert.Equal(t, "healthy", health.Status)
	assert.False(t, health.StoreLoaded)
	assert.True(t, health.EncoderReady)

	require.NoError(t, st.Load())
	assert.True(t, svc.Health().StoreLoaded)

	stats := svc.Stats()
	assert.Equal(t, 0, stats.TotalDocuments)
	assert.Equal(t, 32, stats.Dimension)
	assert.True(t, stats.Loaded)
}

func TestConcurrentQueries(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	require.NoError(t, st.Add(ctx, []string{"alpha", "beta", "gamma", "delta"}, nil))

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := svc.Query(ctx, "alpha", 2, 0.0)
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-done)
	}
}
