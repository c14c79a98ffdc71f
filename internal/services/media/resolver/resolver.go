package resolver

import (
	"context"
	"errors"
	"log/slog"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
)

// Resolver merges the two listing tiers. The primary lister is the cheap
// library path; the fallback is the subprocess table parse, consulted only
// when the primary reports the stale-source signal.
type Resolver struct {
	primary  ports.FormatLister
	fallback ports.FormatLister
}

func New(primary, fallback ports.FormatLister) *Resolver {
	return &Resolver{primary: primary, fallback: fallback}
}

// ListFormats queries the source for its available encodings. Listing
// failures never surface as errors: an empty result means no usable format
// was found and downstream selection returns nil.
func (r *Resolver) ListFormats(ctx context.Context, sourceURL string) []domain.FormatDescriptor {
	descriptors, err := r.primary.ListFormats(ctx, sourceURL)
	if err == nil {
		return descriptors
	}
	if errors.Is(err, domain.ErrSourceStale) && r.fallback != nil {
		slog.Debug("primary format listing stale, trying subprocess lister",
			slog.String("url", sourceURL),
			slog.Any("error", err),
		)
		descriptors, err = r.fallback.ListFormats(ctx, sourceURL)
		if err == nil {
			return descriptors
		}
	}
	slog.Warn("format listing failed",
		slog.String("url", sourceURL),
		slog.Any("error", err),
	)
	return nil
}

// SelectFormat implements ports.FormatResolver on top of the package-level
// selection chain.
func (r *Resolver) SelectFormat(descriptors []domain.FormatDescriptor, tier domain.QualityTier, kind domain.MediaKind) *domain.FormatDescriptor {
	return SelectFormat(descriptors, tier, kind)
}

// SelectFormat walks a strict fallback chain: exact tier-label match with
// matching kind, then first video descriptor for video requests, then first
// audio descriptor, then the first descriptor of any kind. Ties are broken
// by descriptor order as returned by the source.
func SelectFormat(descriptors []domain.FormatDescriptor, tier domain.QualityTier, kind domain.MediaKind) *domain.FormatDescriptor {
	for _, label := range tier.Labels() {
		for i := range descriptors {
			if descriptors[i].Quality == label && descriptors[i].Kind == kind {
				return &descriptors[i]
			}
		}
	}
	if kind == domain.KindVideo {
		if d := firstOfKind(descriptors, domain.KindVideo); d != nil {
			return d
		}
	}
	if d := firstOfKind(descriptors, domain.KindAudio); d != nil {
		return d
	}
	if len(descriptors) > 0 {
		return &descriptors[0]
	}
	return nil
}

func firstOfKind(descriptors []domain.FormatDescriptor, kind domain.MediaKind) *domain.FormatDescriptor {
	for i := range descriptors {
		if descriptors[i].Kind == kind {
			return &descriptors[i]
		}
	}
	return nil
}
