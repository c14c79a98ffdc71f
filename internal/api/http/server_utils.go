package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mediagate/internal/domain"
	"mediagate/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeDomainError maps a retrieval error to its HTTP status and stable
// machine code.
func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, usecase.ErrHistoryDisabled) || errors.Is(err, usecase.ErrConversionDisabled) {
		writeError(w, http.StatusNotImplemented, "not_configured", err.Error())
		return
	}
	writeError(w, statusForError(err), domain.ErrorCode(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrContentUnavailable),
		errors.Is(err, domain.ErrNoFormatAvailable):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrToolMissing):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrExtractionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrNetworkFault):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// setRetryAfter advertises when a spent rate-limit window resets.
func setRetryAfter(w http.ResponseWriter, wait time.Duration) {
	seconds := int64(wait / time.Second)
	if wait%time.Second > 0 {
		seconds++
	}
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
}

func parsePositiveInt(value string, requirePositive bool) (int, error) {
	if strings.TrimSpace(value) == "" {
		return -1, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if requirePositive && parsed <= 0 {
		return 0, errors.New("must be > 0")
	}
	if !requirePositive && parsed < 0 {
		return 0, errors.New("must be >= 0")
	}
	return parsed, nil
}

// artifactContentType resolves the Content-Type for served cache artifacts.
// The stdlib mime table misses subtitle extensions on minimal containers.
func artifactContentType(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "application/octet-stream"
	}
	switch strings.ToLower(name[idx:]) {
	case ".mp4":
		return "video/mp4"
	case ".mkv":
		return "video/x-matroska"
	case ".webm":
		return "video/webm"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	case ".opus", ".ogg":
		return "audio/ogg"
	case ".srt":
		return "application/x-subrip"
	case ".vtt":
		return "text/vtt; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// safeArtifactName rejects anything other than a bare cache file name.
func safeArtifactName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return true
}
