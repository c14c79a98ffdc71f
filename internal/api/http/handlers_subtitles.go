package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"mediagate/internal/metrics"
)

type subtitleRequest struct {
	URL    string `json:"url"`
	Lang   string `json:"lang,omitempty"`
	Format string `json:"format,omitempty"`
}

type subtitleResponse struct {
	ContentID string `json:"contentId"`
	File      string `json:"file"`
	URL       string `json:"url"`
	Format    string `json:"format"`
	CacheHit  bool   `json:"cacheHit"`
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.subtitles == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "subtitle use case not configured")
		return
	}
	ip := clientIP(r)
	if !s.subtitleLimiter.Allow(ip) {
		metrics.RateLimitRejections.WithLabelValues("subtitle").Inc()
		setRetryAfter(w, s.subtitleLimiter.RetryAfter(ip))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "subtitle limit reached, try again later")
		return
	}

	var body subtitleRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}
	format := strings.ToLower(strings.TrimSpace(body.Format))
	if format == "" {
		format = "srt"
	}

	result, err := s.subtitles.Execute(r.Context(), strings.TrimSpace(body.URL), strings.TrimSpace(body.Lang), format)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subtitleResponse{
		ContentID: result.ContentID,
		File:      result.FileName,
		URL:       "/files/" + result.FileName,
		Format:    string(result.Format),
		CacheHit:  result.CacheHit,
	})
}

type convertRequest struct {
	URL string `json:"url"`
}

type convertResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// handleConvert proxies links from platforms outside the extraction path to
// the external conversion service.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.convert == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "conversion service disabled")
		return
	}

	var body convertRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json")
		return
	}
	sourceURL := strings.TrimSpace(body.URL)
	if sourceURL == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "url is required")
		return
	}

	result, err := s.convert.Execute(r.Context(), sourceURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, convertResponse{
		Status:   result.Status,
		URL:      result.URL,
		Filename: result.Filename,
	})
}
