package domain

import (
	"errors"
	"strings"
)

// RetrievalRequest describes one download request. Created per inbound call,
// never persisted.
type RetrievalRequest struct {
	SourceURL string
	Kind      MediaKind
	Tier      QualityTier
}

func (r RetrievalRequest) Validate() error {
	if strings.TrimSpace(r.SourceURL) == "" {
		return errors.New("source url is required")
	}
	if !r.Kind.Valid() {
		return errors.New("invalid media kind: " + string(r.Kind))
	}
	return nil
}

// IsMagnet reports whether the source URL is a magnet URI, which bypasses the
// platform extraction path entirely.
func (r RetrievalRequest) IsMagnet() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.SourceURL)), "magnet:")
}
