package server

import (
	"errors"
	"fmt"
	"net/http"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/medivault/recall"
	"github.com/medivault/recall/metadata"
)

const defaultTopK = 5

type searchRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	SearchType string `json:"search_type"`
	UserID     string `json:"user_id"`
}

type searchResponse struct {
	DiseasesResults         []recall.Match `json:"diseases_results"`
	PatientRecordsResults   []recall.Match `json:"patient_records_results"`
	QueryEmbeddingDimension int            `json:"query_embedding_dimension"`
}

type addVectorsRequest struct {
	Texts     []string          `json:"texts"`
	Metadata  []metadata.Record `json:"metadata"`
	IndexType string            `json:"index_type"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.index.Stats()

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":                       "healthy",
		"service":                      "recall",
		"dimension":                    stats.Dimension,
		"diseases_index_loaded":        stats.Diseases.Loaded,
		"patient_records_index_loaded": stats.Records.Loaded,
		"diseases_count":               stats.Diseases.Count,
		"patient_records_count":        stats.Records.Count,
		"artifacts_stale":              s.stale(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := gojson.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.TopK == 0 {
		req.TopK = defaultTopK
	}
	if req.TopK < 0 {
		s.respondError(w, http.StatusBadRequest, "top_k must be positive")
		return
	}
	if req.SearchType == "" {
		req.SearchType = string(recall.ScopeBoth)
	}
	scope, ok := parseScope(req.SearchType)
	if !ok {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid search_type %q", req.SearchType))
		return
	}

	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.Int("top_k", req.TopK),
		zap.String("search_type", req.SearchType),
	)

	queryVec, err := s.embedder.Embed(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	results, err := s.index.Search(r.Context(), queryVec, req.TopK, scope, req.UserID)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, searchResponse{
		DiseasesResults:         emptyIfNil(results.Diseases),
		PatientRecordsResults:   emptyIfNil(results.Records),
		QueryEmbeddingDimension: len(queryVec),
	})
}

func (s *Server) handleAddVectors(w http.ResponseWriter, r *http.Request) {
	var req addVectorsRequest
	if err := gojson.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Texts) == 0 {
		s.respondError(w, http.StatusBadRequest, "texts is required")
		return
	}
	if len(req.Texts) != len(req.Metadata) {
		s.respondError(w, http.StatusBadRequest, "texts and metadata must have same length")
		return
	}
	collection, ok := parseCollection(req.IndexType)
	if !ok {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid index_type %q", req.IndexType))
		return
	}

	s.logger.Debug("add vectors request",
		zap.String("index_type", req.IndexType),
		zap.Int("texts", len(req.Texts)),
	)

	vectors, err := s.embedder.EmbedBatch(r.Context(), req.Texts)
	if err != nil {
		s.logger.Error("batch embedding failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}

	if _, err := s.index.Add(r.Context(), collection, vectors, req.Metadata); err != nil {
		s.logger.Error("add vectors failed", zap.Error(err))
		s.respondError(w, statusForError(err), err.Error())
		return
	}

	if err := s.index.Persist(r.Context(), collection); err != nil {
		s.logger.Error("persist after add failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"message":       fmt.Sprintf("Added %d vectors to %s index", len(req.Texts), collection),
		"total_vectors": len(req.Texts),
	})
}

func (s *Server) handleRebuildIndex(w http.ResponseWriter, r *http.Request) {
	indexType := r.URL.Query().Get("index_type")
	if _, ok := parseCollection(indexType); !ok {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid index_type %q", indexType))
		return
	}

	// Full rebuilds replay the source datasets and run offline.
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "info",
		"message": fmt.Sprintf("use `recalld init` to rebuild the %s index from its sources", indexType),
	})
}

func parseCollection(s string) (recall.Collection, bool) {
	switch recall.Collection(s) {
	case recall.CollectionDiseases:
		return recall.CollectionDiseases, true
	case recall.CollectionRecords:
		return recall.CollectionRecords, true
	default:
		return "", false
	}
}

func parseScope(s string) (recall.SearchScope, bool) {
	switch recall.SearchScope(s) {
	case recall.ScopeDiseases:
		return recall.ScopeDiseases, true
	case recall.ScopeRecords:
		return recall.ScopeRecords, true
	case recall.ScopeBoth:
		return recall.ScopeBoth, true
	default:
		return "", false
	}
}

// statusForError maps the index error taxonomy onto HTTP status codes.
func statusForError(err error) int {
	var invalidArg *recall.InvalidArgumentError
	var dimMismatch *recall.DimensionMismatchError
	switch {
	case errors.As(err, &invalidArg), errors.As(err, &dimMismatch):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func emptyIfNil(matches []recall.Match) []recall.Match {
	if matches == nil {
		return []recall.Match{}
	}
	return matches
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = gojson.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
