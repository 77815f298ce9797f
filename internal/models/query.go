package models

// QueryRequest is the serving-boundary query payload. TopK defaults to 5 and
// Threshold to 0.7 when omitted; Threshold is a pointer so an explicit 0 can be
// distinguished from "not set".
type QueryRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// QueryResponse carries ranked results for a query.
type QueryResponse struct {
	Results []SearchResult `json:"results"`
	Query   string         `json:"query"`
}

// IngestRequest is the serving-boundary single-document ingestion payload.
type IngestRequest struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IngestResponse reports the ID assigned to an ingested document.
type IngestResponse struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id"`
}

// HealthResponse reports serving readiness.
type HealthResponse struct {
	Status       string `json:"status"`
	StoreLoaded  bool   `json:"store_loaded"`
	EncoderReady bool   `json:"encoder_ready"`
}
