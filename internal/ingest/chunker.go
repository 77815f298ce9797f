// Package ingest provides text chunking and the ingestion pipeline feeding the vector store.
package ingest

import "fmt"

// Chunker splits text into overlapping fixed-size windows, measured in runes so
// multi-byte scripts chunk the same way as single-byte ones.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker. chunkSize must be positive and chunkOverlap must
// be in [0, chunkSize); anything else would stall or walk backwards and is
// rejected as ErrInvalidChunking.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidChunking, chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, chunk size %d)", ErrInvalidChunking, chunkOverlap, chunkSize)
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}, nil
}

// Chunk splits text into windows of chunkSize runes advancing by
// chunkSize-chunkOverlap. Text at or under the chunk size comes back as a single
// chunk, unchanged; the final chunk may be shorter than chunkSize. Pure and
// deterministic.
func (c *Chunker) Chunk(text string) []string {
	runes := []rune(text)
	if len(runes) <= c.chunkSize {
		return []string{text}
	}
	stride := c.chunkSize - c.chunkOverlap
	chunks := make([]string, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
