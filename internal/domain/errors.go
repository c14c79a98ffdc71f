package domain

import "errors"

var ErrNotFound = errors.New("not found")

// Retrieval failure taxonomy. Classification of subprocess diagnostics picks
// exactly one of these; ErrToolMissing is the only configuration-level kind.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrContentUnavailable = errors.New("content unavailable")
	ErrNoFormatAvailable  = errors.New("no format available")
	ErrToolMissing        = errors.New("required tool missing")
	ErrExtractionTimeout  = errors.New("extraction timed out")
	ErrNetworkFault       = errors.New("network or access fault")
	ErrFormatRejected     = errors.New("format rejected by source")
	ErrPostprocessFailure = errors.New("postprocessing failed")
	ErrEmptyArtifact      = errors.New("extraction produced empty file")
	ErrExtractionFailed   = errors.New("extraction failed")

	// ErrRateLimited is returned when a rate limiter rejects the request
	// before any retrieval work starts.
	ErrRateLimited = errors.New("rate limited")

	// ErrSourceStale marks a primary-path failure caused by upstream protocol
	// drift (stale cipher, expired stream URLs). It is the only signal that
	// moves the strategy chain to the next extractor.
	ErrSourceStale = errors.New("source path stale")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidInput, "invalid_input"},
	{ErrContentUnavailable, "content_unavailable"},
	{ErrNoFormatAvailable, "no_format_available"},
	{ErrToolMissing, "tool_missing"},
	{ErrExtractionTimeout, "extraction_timeout"},
	{ErrNetworkFault, "network_fault"},
	{ErrFormatRejected, "format_rejected"},
	{ErrPostprocessFailure, "postprocess_failure"},
	{ErrEmptyArtifact, "empty_artifact"},
	{ErrRateLimited, "rate_limited"},
	{ErrNotFound, "not_found"},
	{ErrExtractionFailed, "extraction_failed"},
}

// ErrorCode maps a retrieval error to its stable machine code.
func ErrorCode(err error) string {
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "internal_error"
}

// IsFatal reports whether the error is a configuration problem rather than a
// request-scoped retrieval failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrToolMissing)
}
