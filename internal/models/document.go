// Package models defines core data structures for documents, queries, and search results.
package models

// Document is a stored entry in the vector store: the original (or chunked) text,
// its metadata, and the stable ID assigned at insertion. Documents are immutable
// once stored and are removed only by clearing the whole store.
type Document struct {
	ID       int                    `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// SearchResult is a single retrieval hit.
type SearchResult struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
	Score    float64                `json:"score"`
	DocID    int                    `json:"doc_id"`
}

// StoreStats describes the current state of the vector store.
type StoreStats struct {
	TotalDocuments int    `json:"total_documents"`
	Dimension      int    `json:"dimension"`
	Loaded         bool   `json:"loaded"`
	StorePath      string `json:"store_path"`
}
