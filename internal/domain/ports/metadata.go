package ports

import "context"

// ContentInfo is the read-only metadata the source exposes for a content ID.
type ContentInfo struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail,omitempty"`
}

// MetadataAPI answers availability and title lookups against the source's
// public metadata endpoint. Missing or unprocessed content surfaces as
// domain.ErrContentUnavailable.
type MetadataAPI interface {
	Lookup(ctx context.Context, contentID string) (ContentInfo, error)
}
