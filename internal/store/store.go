// Package store implements the vector store: the append-only collection of
// documents, their metadata, and their embeddings, with nearest-neighbor search
// and persistence.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/hyperjump/kensaku/internal/embedding"
	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/storage"
	"github.com/hyperjump/kensaku/internal/vector"
	"go.uber.org/zap"
)

// Store owns the parallel arrays of documents and metadata and the flat vector
// index behind them. The three are always the same length, every embedding has
// the encoder's dimension, and document ids are positions in insertion order,
// never reused.
//
// One writer at a time: Add, Clear, Load, and Save are serialized against each
// other by the store's lock, while concurrent Search calls proceed in parallel
// against a stable index.
type Store struct {
	encoder    embedding.Encoder
	dimensions int
	storePath  string
	indexName  string
	logger     *zap.Logger

	mu        sync.RWMutex
	index     *vector.FlatL2 // nil until first Add, Load, or Clear
	documents []string
	metadata  []map[string]interface{}
}

// New creates a store that persists artifacts under storePath with the given
// index name. The dimension is taken from the encoder and fixed for the store's
// lifetime. The store starts uninitialized; call Load (or the first Add) to
// create the backing index.
func New(encoder embedding.Encoder, storePath, indexName string, logger *zap.Logger) (*Store, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(storePath, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{
		encoder:    encoder,
		dimensions: encoder.Dimensions(),
		storePath:  storePath,
		indexName:  indexName,
		logger:     logger,
	}
	logger.Info("vector store initialized",
		zap.String("store_path", storePath),
		zap.String("index_name", indexName),
		zap.Int("dimensions", s.dimensions),
	)
	return s, nil
}

func (s *Store) indexPath() string {
	return filepath.Join(s.storePath, s.indexName+".vec")
}

func (s *Store) sideTablePath() string {
	return filepath.Join(s.storePath, s.indexName+".db")
}

// Add encodes all texts in one batch call and appends them to the index and the
// parallel arrays in lock-step. Nothing is mutated if encoding fails. A nil
// metadata entry (or a nil metadatas slice) defaults to an empty map per item.
func (s *Store) Add(ctx context.Context, texts []string, metadatas []map[string]interface{}) error {
	if len(texts) == 0 {
		return nil
	}
	if metadatas != nil && len(metadatas) != len(texts) {
		return fmt.Errorf("texts and metadata length mismatch: %d vs %d", len(texts), len(metadatas))
	}

	embeddings, err := s.encoder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(texts, metadatas, embeddings); err != nil {
		return err
	}
	s.logger.Info("added documents to vector store", zap.Int("count", len(texts)))
	return nil
}

// AddDocument adds a single document and returns its assigned id as a string.
func (s *Store) AddDocument(ctx context.Context, text string, metadata map[string]interface{}) (string, error) {
	emb, err := s.encoder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to generate embedding: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var metas []map[string]interface{}
	if metadata != nil {
		metas = []map[string]interface{}{metadata}
	}
	if err := s.appendLocked([]string{text}, metas, [][]float32{emb}); err != nil {
		return "", err
	}
	id := len(s.documents) - 1
	s.logger.Info("added document to vector store", zap.Int("doc_id", id))
	return strconv.Itoa(id), nil
}

// appendLocked appends embeddings, texts, and metadata as one atomic step.
// Caller holds the write lock.
func (s *Store) appendLocked(texts []string, metadatas []map[string]interface{}, embeddings [][]float32) error {
	if s.index == nil {
		idx, err := vector.NewFlatL2(s.dimensions)
		if err != nil {
			return fmt.Errorf("initialize index: %w", err)
		}
		s.index = idx
		s.logger.Info("created new flat index", zap.Int("dimensions", s.dimensions))
	}
	if err := s.index.Add(embeddings); err != nil {
		return fmt.Errorf("index vectors: %w", err)
	}
	for i, text := range texts {
		var meta map[string]interface{}
		if metadatas != nil {
			meta = metadatas[i]
		}
		if meta == nil {
			meta = make(map[string]interface{})
		}
		s.documents = append(s.documents, text)
		s.metadata = append(s.metadata, meta)
	}
	return nil
}

// Search encodes the query and returns stored documents whose similarity score
// is at least threshold, ordered by descending score. The score for a neighbor
// at squared L2 distance d is 1/(1+d). topK is clamped to the current total;
// an uninitialized or empty store yields no results and no error.
func (s *Store) Search(ctx context.Context, query string, topK int, threshold float64) ([]models.SearchResult, error) {
	s.mu.RLock()
	empty := s.index == nil || s.index.Ntotal() == 0
	s.mu.RUnlock()
	if empty {
		s.logger.Warn("vector store is empty")
		return nil, nil
	}

	queryEmb, err := s.encoder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return nil, nil
	}
	k := topK
	if n := s.index.Ntotal(); k > n {
		k = n
	}
	neighbors, err := s.index.Search(queryEmb, k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}

	results := make([]models.SearchResult, 0, len(neighbors))
	for _, nb := range neighbors {
		score := 1 / (1 + nb.SqDistance)
		if score < threshold {
			continue
		}
		results = append(results, models.SearchResult{
			Text:     s.documents[nb.Pos],
			Metadata: s.metadata[nb.Pos],
			Score:    score,
			DocID:    nb.Pos,
		})
	}
	s.logger.Info("search completed", zap.Int("results", len(results)))
	return results, nil
}

// Save persists the index and the document side-table as a pair of artifacts
// under the store path. Saving an uninitialized store is a logged no-op. Save
// holds the read lock for its whole duration so it never observes a half-applied
// Add or Clear.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		s.logger.Warn("no index to save")
		return nil
	}
	if err := s.index.Save(s.indexPath()); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	docs, err := storage.OpenDocumentStore(s.sideTablePath())
	if err != nil {
		return fmt.Errorf("open side-table: %w", err)
	}
	defer docs.Close()
	if err := docs.ReplaceAll(context.Background(), s.documents, s.metadata); err != nil {
		return fmt.Errorf("save side-table: %w", err)
	}
	s.logger.Info("saved vector store",
		zap.String("store_path", s.storePath),
		zap.Int("total_documents", len(s.documents)),
	)
	return nil
}

// Load restores the index and side-table from disk. Missing artifacts are not an
// error: a fresh empty index is created. Corrupt or inconsistent artifacts are
// logged and likewise degrade to a fresh empty index, never a hard failure.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := vector.NewFlatL2(s.dimensions)
	if err != nil {
		return fmt.Errorf("initialize index: %w", err)
	}

	if err := idx.Load(s.indexPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no existing index found, creating new one")
		} else {
			s.logger.Error("failed to load vector index, creating new one", zap.Error(err))
		}
		s.resetLocked(idx)
		return nil
	}

	if _, err := os.Stat(s.sideTablePath()); err != nil {
		s.logger.Error("index present but side-table missing, creating new index", zap.Error(err))
		idx.Reset()
		s.resetLocked(idx)
		return nil
	}
	docs, err := storage.OpenDocumentStore(s.sideTablePath())
	if err != nil {
		s.logger.Error("failed to open side-table, creating new index", zap.Error(err))
		idx.Reset()
		s.resetLocked(idx)
		return nil
	}
	defer docs.Close()
	texts, metadata, err := docs.LoadAll(context.Background())
	if err != nil {
		s.logger.Error("failed to load side-table, creating new index", zap.Error(err))
		idx.Reset()
		s.resetLocked(idx)
		return nil
	}
	if len(texts) != idx.Ntotal() {
		s.logger.Error("artifact mismatch, creating new index",
			zap.Int("side_table_documents", len(texts)),
			zap.Int("index_vectors", idx.Ntotal()),
		)
		idx.Reset()
		s.resetLocked(idx)
		return nil
	}

	s.index = idx
	s.documents = texts
	s.metadata = metadata
	s.logger.Info("loaded vector store", zap.Int("total_documents", len(texts)))
	return nil
}

// resetLocked installs idx as a fresh empty index. Caller holds the write lock.
func (s *Store) resetLocked(idx *vector.FlatL2) {
	s.index = idx
	s.documents = nil
	s.metadata = nil
}

// Clear discards all entries and re-creates an empty index at the same dimension.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := vector.NewFlatL2(s.dimensions)
	if err != nil {
		return fmt.Errorf("initialize index: %w", err)
	}
	s.resetLocked(idx)
	s.logger.Info("cleared vector store")
	return nil
}

// Ready reports whether the backing index exists (empty counts as ready).
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index != nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

// Stats returns the store's document count, dimension, readiness, and location.
func (s *Store) Stats() models.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.StoreStats{
		TotalDocuments: len(s.documents),
		Dimension:      s.dimensions,
		Loaded:         s.index != nil,
		StorePath:      s.storePath,
	}
}
