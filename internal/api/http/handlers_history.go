package apihttp

import (
	"errors"
	"net/http"
	"strings"

	"mediagate/internal/domain"
)

type historyListResponse struct {
	Items []domain.DownloadRecord `json:"items"`
	Count int                     `json:"count"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "download history disabled")
		return
	}

	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid limit")
		return
	}
	if limit <= 0 {
		limit = 20
	}

	records, err := s.history.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list downloads")
		return
	}
	if records == nil {
		records = []domain.DownloadRecord{}
	}
	writeJSON(w, http.StatusOK, historyListResponse{Items: records, Count: len(records)})
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "download history disabled")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := s.history.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "download record not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load download record")
			return
		}
		writeJSON(w, http.StatusOK, rec)

	case http.MethodDelete:
		if err := s.history.Delete(r.Context(), id); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "download record not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete download record")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
