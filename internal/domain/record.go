package domain

import (
	"errors"
	"time"
)

type DownloadStatus string

const (
	DownloadPending DownloadStatus = "pending"
	DownloadDone    DownloadStatus = "done"
	DownloadFailed  DownloadStatus = "failed"
)

// DownloadRecord is the persisted trace of one retrieval request.
type DownloadRecord struct {
	ID        string         `json:"id"`
	ContentID string         `json:"contentId"`
	SourceURL string         `json:"sourceUrl"`
	Title     string         `json:"title"`
	Kind      MediaKind      `json:"kind"`
	Quality   QualityTier    `json:"quality"`
	FileName  string         `json:"fileName"`
	SizeBytes int64          `json:"sizeBytes"`
	Status    DownloadStatus `json:"status"`
	ErrorCode string         `json:"errorCode,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Validate checks domain invariants for DownloadRecord.
func (r DownloadRecord) Validate() error {
	if r.ID == "" {
		return errors.New("download id is required")
	}
	if r.SizeBytes < 0 {
		return errors.New("sizeBytes must not be negative")
	}
	if !r.Kind.Valid() {
		return errors.New("invalid media kind: " + string(r.Kind))
	}
	switch r.Status {
	case DownloadPending, DownloadDone, DownloadFailed:
		// valid
	case "":
		return errors.New("status is required")
	default:
		return errors.New("invalid status: " + string(r.Status))
	}
	return nil
}
