// Package query provides the request/response façade over the vector store.
package query

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/store"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// ErrNotReady indicates the vector store has no backing index yet. It is a
// retryable condition, distinct from internal failures: callers should load or
// ingest first, or simply retry after startup completes.
var ErrNotReady = errors.New("vector store not ready")

const (
	// DefaultTopK is the result count used when a query does not specify one.
	DefaultTopK = 5
	// DefaultThreshold is the minimum similarity score used when a query does
	// not specify one.
	DefaultThreshold = 0.7
)

// Service is the serving façade over the vector store. Encoding and search are
// CPU-bound, so the service runs them on a bounded worker pool rather than on
// the caller's goroutine; callers block for their result but unrelated requests
// are never stalled behind an oversubscribed CPU.
type Service struct {
	store  *store.Store
	pool   *ants.Pool
	logger *zap.Logger
}

// NewService creates a service over st with a worker pool of poolSize. A
// non-positive poolSize defaults to half the CPUs, minimum one.
func NewService(st *store.Store, poolSize int, logger *zap.Logger) (*Service, error) {
	if poolSize < 1 {
		poolSize = runtime.NumCPU() / 2
		if poolSize < 1 {
			poolSize = 1
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{
		store:  st,
		pool:   pool,
		logger: logger,
	}, nil
}

// Health reports serving readiness.
func (s *Service) Health() models.HealthResponse {
	return models.HealthResponse{
		Status:       "healthy",
		StoreLoaded:  s.store.Ready(),
		EncoderReady: true,
	}
}

// Query returns ranked results for text. topK <= 0 defaults to DefaultTopK.
// Returns ErrNotReady when the store has no backing index. The work is not
// cancelled if the caller abandons the request; it completes and its result is
// discarded.
func (s *Service) Query(ctx context.Context, text string, topK int, threshold float64) ([]models.SearchResult, error) {
	if !s.store.Ready() {
		return nil, ErrNotReady
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	type outcome struct {
		results []models.SearchResult
		err     error
	}
	done := make(chan outcome, 1)
	if err := s.pool.Submit(func() {
		results, err := s.store.Search(ctx, text, topK, threshold)
		done <- outcome{results: results, err: err}
	}); err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	out := <-done
	if out.err != nil {
		return nil, fmt.Errorf("query failed: %w", out.err)
	}
	return out.results, nil
}

// Ingest adds one document and returns its assigned id. Returns ErrNotReady
// when the store has no backing index.
func (s *Service) Ingest(ctx context.Context, text string, metadata map[string]interface{}) (string, error) {
	if !s.store.Ready() {
		return "", ErrNotReady
	}

	type outcome struct {
		id  string
		err error
	}
	done := make(chan outcome, 1)
	if err := s.pool.Submit(func() {
		id, err := s.store.AddDocument(ctx, text, metadata)
		done <- outcome{id: id, err: err}
	}); err != nil {
		return "", fmt.Errorf("submit ingest: %w", err)
	}
	out := <-done
	if out.err != nil {
		return "", fmt.Errorf("ingest failed: %w", out.err)
	}
	return out.id, nil
}

// SaveStore persists the store's artifact pair.
func (s *Service) SaveStore() error {
	if !s.store.Ready() {
		return ErrNotReady
	}
	return s.store.Save()
}

// Stats returns the store's statistics.
func (s *Service) Stats() models.StoreStats {
	return s.store.Stats()
}

// Close releases the worker pool.
func (s *Service) Close() error {
	s.pool.Release()
	return nil
}
