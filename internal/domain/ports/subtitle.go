package ports

import "context"

// CaptionResolver discovers the WebVTT caption track URL for a source.
type CaptionResolver interface {
	CaptionTrackURL(ctx context.Context, sourceURL, language string) (string, error)
}

// SubtitleFetcher retrieves a caption document as UTF-8 text.
type SubtitleFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}
