package ports

import (
	"context"

	"mediagate/internal/domain"
)

// HistoryRepository persists download records.
type HistoryRepository interface {
	Upsert(ctx context.Context, rec domain.DownloadRecord) error
	Get(ctx context.Context, id string) (domain.DownloadRecord, error)
	ListRecent(ctx context.Context, limit int) ([]domain.DownloadRecord, error)
	Delete(ctx context.Context, id string) error
}
