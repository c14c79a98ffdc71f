package ports

import (
	"context"

	"mediagate/internal/domain"
)

// FormatLister queries a source for its retrievable encodings.
type FormatLister interface {
	ListFormats(ctx context.Context, sourceURL string) ([]domain.FormatDescriptor, error)
}

// FormatResolver produces the format inventory for a source and picks the
// descriptor honoring a tier preference. ListFormats never fails: an empty
// slice means no usable format was found.
type FormatResolver interface {
	ListFormats(ctx context.Context, sourceURL string) []domain.FormatDescriptor
	SelectFormat(descriptors []domain.FormatDescriptor, tier domain.QualityTier, kind domain.MediaKind) *domain.FormatDescriptor
}
