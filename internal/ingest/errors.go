package ingest

import "errors"

var (
	// ErrInvalidChunking indicates a chunking configuration that can never make
	// progress, such as an overlap at or above the chunk size.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrNotDirectory indicates a directory ingestion target that does not exist
	// or is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrDecode indicates a structured record or JSON line that could not be decoded.
	ErrDecode = errors.New("malformed record")
)
