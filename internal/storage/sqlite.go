// Package storage persists the document side-table that accompanies the vector index.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DocumentStore holds the texts and metadata parallel to the vector index, in a
// SQLite database. Row ids are the document ids, so insertion order is preserved
// across save/load round trips.
type DocumentStore struct {
	db *sql.DB
}

// OpenDocumentStore opens or creates the database at dbPath and initializes the
// schema. Parent directories are created if they do not exist.
func OpenDocumentStore(dbPath string) (*DocumentStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DocumentStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY,
		content TEXT NOT NULL,
		metadata TEXT
	);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceAll replaces the whole side-table with the given texts and metadata in
// one transaction. texts and metadata must have equal length; position i becomes
// document id i.
func (s *DocumentStore) ReplaceAll(ctx context.Context, texts []string, metadata []map[string]interface{}) error {
	if len(texts) != len(metadata) {
		return fmt.Errorf("texts and metadata length mismatch: %d vs %d", len(texts), len(metadata))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO documents (id, content, metadata) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, text := range texts {
		metaJSON, err := json.Marshal(metadata[i])
		if err != nil {
			return fmt.Errorf("marshal metadata for document %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, text, string(metaJSON)); err != nil {
			return fmt.Errorf("insert document %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// LoadAll returns all texts and metadata ordered by document id.
func (s *DocumentStore) LoadAll(ctx context.Context) ([]string, []map[string]interface{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT content, metadata FROM documents ORDER BY id")
	if err != nil {
		return nil, nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var texts []string
	var metadata []map[string]interface{}
	for rows.Next() {
		var text string
		var metaJSON sql.NullString
		if err := rows.Scan(&text, &metaJSON); err != nil {
			return nil, nil, fmt.Errorf("scan document: %w", err)
		}
		meta := make(map[string]interface{})
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
				return nil, nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		texts = append(texts, text)
		metadata = append(metadata, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate documents: %w", err)
	}
	return texts, metadata, nil
}

// Count returns the number of stored documents.
func (s *DocumentStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents").Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *DocumentStore) Close() error {
	return s.db.Close()
}
