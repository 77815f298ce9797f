package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hyperjump/kensaku/internal/models"
	"github.com/hyperjump/kensaku/internal/query"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.service.Health())
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	threshold := query.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	s.logger.Debug("query request", zap.String("query", req.Query), zap.Int("top_k", req.TopK))

	results, err := s.service.Query(r.Context(), req.Query, req.TopK, threshold)
	if err != nil {
		if errors.Is(err, query.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, "vector store not ready")
			return
		}
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.respondJSON(w, http.StatusOK, models.QueryResponse{Results: results, Query: req.Query})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	id, err := s.service.Ingest(r.Context(), req.Text, req.Metadata)
	if err != nil {
		if errors.Is(err, query.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, "vector store not ready")
			return
		}
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, models.IngestResponse{Status: "success", DocumentID: id})
}

type ingestFileRequest struct {
	Path     string                 `json:"path"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) handleIngestFile(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		s.respondError(w, http.StatusNotImplemented, "file ingestion not enabled")
		return
	}
	var req ingestFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	if err := s.pipeline.IngestFile(r.Context(), req.Path, req.Metadata); err != nil {
		s.logger.Error("file ingestion failed", zap.String("path", req.Path), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"path": req.Path, "status": "ingested"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := s.service.SaveStore(); err != nil {
		if errors.Is(err, query.ErrNotReady) {
			s.respondError(w, http.StatusServiceUnavailable, "vector store not ready")
			return
		}
		s.logger.Error("save failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.service.Stats())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
