package ports

import (
	"context"

	"mediagate/internal/domain"
)

// ExtractInput carries everything an extractor strategy needs to fetch one
// artifact. OutputPath is the exact file the strategy must produce.
type ExtractInput struct {
	SourceURL  string
	ContentID  string
	FormatID   string
	Kind       domain.MediaKind
	OutputPath string
	Retries    int
	OnProgress func(percent float64)
}

// Extractor is one tier of the retrieval strategy chain. Implementations
// return errors wrapped with the domain taxonomy; wrapping
// domain.ErrSourceStale tells the chain to fall through to the next tier.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, input ExtractInput) error
}

// MagnetFetcher downloads the best media file of a magnet link to destPath.
type MagnetFetcher interface {
	Fetch(ctx context.Context, magnetURI string, kind domain.MediaKind, destPath string, onProgress func(float64)) error
}

// ArtifactProber inspects a finished artifact. Probe errors are advisory.
type ArtifactProber interface {
	Probe(ctx context.Context, filePath string) (domain.MediaInfo, error)
}
