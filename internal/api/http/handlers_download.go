package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"mediagate/internal/domain"
	"mediagate/internal/metrics"
)

type downloadRequest struct {
	URL     string `json:"url"`
	Kind    string `json:"kind,omitempty"`
	Quality string `json:"quality,omitempty"`
}

type downloadResponse struct {
	ID        string            `json:"id"`
	ContentID string            `json:"contentId,omitempty"`
	Title     string            `json:"title"`
	File      string            `json:"file"`
	Size      int64             `json:"size"`
	URL       string            `json:"url"`
	Strategy  string            `json:"strategy,omitempty"`
	CacheHit  bool              `json:"cacheHit"`
	Info      *domain.MediaInfo `json:"info,omitempty"`
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.download == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "download use case not configured")
		return
	}
	if !s.downloadLimiter.Allow() {
		metrics.RateLimitRejections.WithLabelValues("download").Inc()
		setRetryAfter(w, s.downloadLimiter.RetryAfter())
		writeError(w, http.StatusTooManyRequests, "rate_limited", "download limit reached, try again later")
		return
	}

	var body downloadRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}

	kind := domain.MediaKind(strings.ToLower(strings.TrimSpace(body.Kind)))
	if kind == "" {
		kind = domain.KindVideo
	}
	tier := domain.QualityTier(strings.ToLower(strings.TrimSpace(body.Quality)))
	if tier == "" {
		tier = domain.TierHigh
	}

	result, err := s.download.Execute(r.Context(), domain.RetrievalRequest{
		SourceURL: strings.TrimSpace(body.URL),
		Kind:      kind,
		Tier:      tier,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := downloadResponse{
		ID:        result.ID,
		ContentID: result.ContentID,
		Title:     result.Title,
		File:      result.Artifact.FileName,
		Size:      result.Artifact.SizeBytes,
		URL:       "/files/" + result.Artifact.FileName,
		Strategy:  result.Strategy,
		CacheHit:  result.CacheHit,
	}
	if len(result.Info.Tracks) > 0 || result.Info.Duration > 0 {
		info := result.Info
		resp.Info = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

type formatListResponse struct {
	ContentID string                    `json:"contentId"`
	Items     []domain.FormatDescriptor `json:"items"`
	Count     int                       `json:"count"`
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.formats == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "format listing not configured")
		return
	}
	sourceURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "url query parameter is required")
		return
	}

	inventory, err := s.formats.Execute(r.Context(), sourceURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	items := inventory.Items
	if items == nil {
		items = []domain.FormatDescriptor{}
	}
	writeJSON(w, http.StatusOK, formatListResponse{
		ContentID: inventory.ContentID,
		Items:     items,
		Count:     len(items),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.contentID == nil || s.metadata == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "metadata lookup not configured")
		return
	}
	sourceURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "url query parameter is required")
		return
	}

	contentID, err := s.contentID(sourceURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	info, err := s.metadata.Lookup(r.Context(), contentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}
