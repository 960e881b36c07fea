package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/dealgest/internal/index"
	"github.com/dgallion1/dealgest/internal/store"
	"github.com/dgallion1/dealgest/internal/tables"
)

// maxTopK caps search result counts requested over HTTP.
const maxTopK = 50

// handleListDocuments lists every stored fact record, optionally filtered by
// status.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list documents failed", "error", err)
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := docs[:0]
		for _, d := range docs {
			if string(d.Status) == status {
				filtered = append(filtered, d)
			}
		}
		docs = filtered
	}
	if docs == nil {
		docs = []store.Summary{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (s *Server) handleGetFacts(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	rec, err := s.store.Get(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get facts failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to load facts: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleGetTables returns the classified tables of a document. ?type=
// restricts the result to one classification.
func (s *Server) handleGetTables(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	ts, err := s.store.Tables(r.Context(), docID)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("get tables failed", "doc_id", docID, "error", err)
		jsonError(w, "failed to load tables: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if typ := r.URL.Query().Get("type"); typ != "" {
		var filtered []tables.EnrichedTable
		for _, t := range ts {
			if string(t.Classification.Type) == typ {
				filtered = append(filtered, t)
			}
		}
		ts = filtered
	}
	if ts == nil {
		ts = []tables.EnrichedTable{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": docID,
		"tables": ts,
		"counts": tables.CountByType(ts),
	})
}

type searchRequest struct {
	Query string `json:"query"`
	DocID string `json:"doc_id"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		jsonError(w, "search unavailable", http.StatusServiceUnavailable)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.TopK <= 0 {
		req.TopK = s.cfg.TopK
	}
	req.TopK = min(req.TopK, maxTopK)

	hits, err := s.search.Search(r.Context(), req.Query, req.DocID, req.TopK)
	if errors.Is(err, index.ErrEmptyQuery) {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		s.log.Error("search failed", "query", req.Query, "doc_id", req.DocID, "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	if hits == nil {
		hits = []index.Hit{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"hits": hits, "count": len(hits)})
}
