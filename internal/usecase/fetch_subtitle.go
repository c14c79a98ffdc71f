package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
	"mediagate/internal/metrics"
	"mediagate/internal/services/subtitle"
	"mediagate/internal/storage/artifacts"
)

// FetchSubtitle discovers a caption track, fetches it as WebVTT, converts to
// the requested format and stores the result in the subtitle cache dir under
// the same eviction policy as media artifacts. Progress is optional; when set,
// each job is announced on the event feed under its own id.
type FetchSubtitle struct {
	ContentID func(rawURL string) (string, error)
	Captions  ports.CaptionResolver
	Fetcher   ports.SubtitleFetcher
	Store     *artifacts.Store
	Progress  ports.ProgressSink
}

type SubtitleResult struct {
	ContentID string
	FileName  string
	Path      string
	Format    subtitle.Format
	CacheHit  bool
}

func (uc FetchSubtitle) Execute(ctx context.Context, sourceURL, language, targetFormat string) (SubtitleResult, error) {
	contentID, err := uc.ContentID(sourceURL)
	if err != nil {
		return SubtitleResult{}, err
	}
	format, err := subtitle.ParseFormat(targetFormat)
	if err != nil {
		return SubtitleResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	id := uuid.NewString()
	uc.publish(domain.ProgressEvent{ID: id, ContentID: contentID, Stage: domain.StageQueued, Percent: -1})

	result, err := uc.run(ctx, id, contentID, sourceURL, language, format)
	if err != nil {
		code := domain.ErrorCode(err)
		uc.publish(domain.ProgressEvent{ID: id, ContentID: contentID, Stage: domain.StageFailed, Percent: -1, ErrorCode: code})
		slog.Warn("subtitle fetch failed",
			slog.String("id", id),
			slog.String("url", sourceURL),
			slog.String("code", code),
			slog.Any("error", err),
		)
		return SubtitleResult{}, err
	}
	uc.publish(domain.ProgressEvent{ID: id, ContentID: contentID, Stage: domain.StageDone, Percent: 100, FileName: result.FileName})
	return result, nil
}

func (uc FetchSubtitle) run(ctx context.Context, id, contentID, sourceURL, language string, format subtitle.Format) (SubtitleResult, error) {
	fileName := subtitleFileName(contentID, language, format)
	if artifact, ok := uc.Store.Lookup(fileName); ok {
		return SubtitleResult{
			ContentID: contentID,
			FileName:  fileName,
			Path:      artifact.Path,
			Format:    format,
			CacheHit:  true,
		}, nil
	}

	uc.publish(domain.ProgressEvent{ID: id, ContentID: contentID, Stage: domain.StageResolving, Percent: -1})
	trackURL, err := uc.Captions.CaptionTrackURL(ctx, sourceURL, language)
	if err != nil {
		return SubtitleResult{}, err
	}
	doc, err := uc.Fetcher.Fetch(ctx, trackURL)
	if err != nil {
		return SubtitleResult{}, err
	}

	uc.publish(domain.ProgressEvent{ID: id, ContentID: contentID, Stage: domain.StageConverting, Percent: -1, FileName: fileName})
	converted, err := subtitle.Convert(doc, format)
	if err != nil {
		return SubtitleResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	uc.Store.EvictOldestIfOverLimit()
	if err := uc.Store.Ensure(); err != nil {
		return SubtitleResult{}, fmt.Errorf("create subtitle dir: %w", err)
	}
	path := uc.Store.PathFor(fileName)
	if err := os.WriteFile(path, []byte(converted), 0o644); err != nil {
		return SubtitleResult{}, fmt.Errorf("write subtitle: %w", err)
	}

	metrics.SubtitleConversions.WithLabelValues(string(format)).Inc()
	slog.Info("subtitle stored",
		slog.String("contentId", contentID),
		slog.String("file", fileName),
		slog.String("format", string(format)),
	)
	return SubtitleResult{
		ContentID: contentID,
		FileName:  fileName,
		Path:      path,
		Format:    format,
	}, nil
}

func (uc FetchSubtitle) publish(ev domain.ProgressEvent) {
	if uc.Progress != nil {
		uc.Progress.Publish(ev)
	}
}

func subtitleFileName(contentID, language string, format subtitle.Format) string {
	stem := artifacts.SanitizeTitle(contentID)
	if stem == "" {
		stem = "subtitle"
	}
	if lang := artifacts.SanitizeTitle(strings.TrimSpace(language)); lang != "" {
		stem += "_" + lang
	}
	return stem + "." + string(format)
}
