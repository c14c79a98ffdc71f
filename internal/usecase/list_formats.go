package usecase

import (
	"context"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
)

type ListFormats struct {
	ContentID func(rawURL string) (string, error)
	Resolver  ports.FormatResolver
}

// FormatInventory is the full descriptor list a source offers.
type FormatInventory struct {
	ContentID string
	Items     []domain.FormatDescriptor
}

func (uc ListFormats) Execute(ctx context.Context, sourceURL string) (FormatInventory, error) {
	contentID, err := uc.ContentID(sourceURL)
	if err != nil {
		return FormatInventory{}, err
	}
	return FormatInventory{
		ContentID: contentID,
		Items:     uc.Resolver.ListFormats(ctx, sourceURL),
	}, nil
}
