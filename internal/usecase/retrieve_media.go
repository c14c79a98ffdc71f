package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
	"mediagate/internal/metrics"
	"mediagate/internal/storage/artifacts"
)

// RetrieveMedia drives one download request end to end: availability check,
// deterministic naming, cache lookup, format selection and the extractor
// strategy chain. Requests are independent; two concurrent calls for the
// same artifact may both extract, the deterministic filename makes the
// second write converge.
type RetrieveMedia struct {
	ContentID func(rawURL string) (string, error)
	Metadata  ports.MetadataAPI
	Resolver  ports.FormatResolver
	Chain     []ports.Extractor
	Magnet    ports.MagnetFetcher
	Store     *artifacts.Store
	Prober    ports.ArtifactProber
	History   ports.HistoryRepository
	Progress  ports.ProgressSink
	ToolCheck func(ctx context.Context) error
	Sem       *semaphore.Weighted
	Retries   int
	Now       func() time.Time
}

// RetrieveResult reports a finished retrieval. Info carries probe data when
// an artifact prober is wired and succeeds.
type RetrieveResult struct {
	ID        string
	ContentID string
	Title     string
	Artifact  domain.Artifact
	Info      domain.MediaInfo
	Strategy  string
	CacheHit  bool
}

func (uc RetrieveMedia) Execute(ctx context.Context, req domain.RetrievalRequest) (RetrieveResult, error) {
	if err := req.Validate(); err != nil {
		return RetrieveResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if uc.ToolCheck != nil {
		if err := uc.ToolCheck(ctx); err != nil {
			return RetrieveResult{}, err
		}
	}

	result := RetrieveResult{ID: uuid.NewString()}
	uc.publish(domain.ProgressEvent{ID: result.ID, Stage: domain.StageQueued, Percent: -1})

	started := uc.now()
	var err error
	if req.IsMagnet() {
		err = uc.runMagnet(ctx, req, &result)
	} else {
		err = uc.runPlatform(ctx, req, &result)
	}
	uc.finish(ctx, req, result, err, started)
	if err != nil {
		return RetrieveResult{}, err
	}
	return result, nil
}

func (uc RetrieveMedia) runPlatform(ctx context.Context, req domain.RetrievalRequest, result *RetrieveResult) error {
	contentID, err := uc.ContentID(req.SourceURL)
	if err != nil {
		return err
	}
	result.ContentID = contentID

	uc.publish(domain.ProgressEvent{ID: result.ID, ContentID: contentID, Stage: domain.StageResolving, Percent: -1})

	title := contentID
	if uc.Metadata != nil {
		info, err := uc.Metadata.Lookup(ctx, contentID)
		if err != nil {
			return err
		}
		if info.Title != "" {
			title = info.Title
		}
	}
	result.Title = title

	quality := ""
	if req.Kind == domain.KindVideo {
		quality = req.Tier.PrimaryLabel()
	}
	fileName := artifacts.BuildFileName(title, quality, req.Kind)

	if artifact, ok := uc.Store.Lookup(fileName); ok {
		metrics.ArtifactCacheHits.Inc()
		slog.Info("artifact cache hit", slog.String("file", fileName))
		result.Artifact = artifact
		result.CacheHit = true
		return nil
	}
	uc.Store.EvictOldestIfOverLimit()

	descriptors := uc.Resolver.ListFormats(ctx, req.SourceURL)
	selected := uc.Resolver.SelectFormat(descriptors, req.Tier, req.Kind)
	if selected == nil {
		return fmt.Errorf("%w: %s/%s for %s", domain.ErrNoFormatAvailable, req.Kind, req.Tier, contentID)
	}

	outputPath := uc.Store.PathFor(fileName)
	uc.publish(domain.ProgressEvent{ID: result.ID, ContentID: contentID, Stage: domain.StageExtracting, Percent: -1, FileName: fileName})

	strategy, err := uc.extract(ctx, ports.ExtractInput{
		SourceURL:  req.SourceURL,
		ContentID:  contentID,
		FormatID:   selected.ID,
		Kind:       req.Kind,
		OutputPath: outputPath,
		Retries:    uc.Retries,
		OnProgress: uc.progressFunc(result.ID, contentID, fileName),
	})
	if err != nil {
		return err
	}
	result.Strategy = strategy
	return uc.verify(ctx, outputPath, fileName, result)
}

func (uc RetrieveMedia) runMagnet(ctx context.Context, req domain.RetrievalRequest, result *RetrieveResult) error {
	if uc.Magnet == nil {
		return fmt.Errorf("%w: magnet retrieval not enabled", domain.ErrInvalidInput)
	}

	name := magnetDisplayName(req.SourceURL)
	result.ContentID = magnetInfoHash(req.SourceURL)
	result.Title = name
	fileName := artifacts.BuildFileName(name, "", req.Kind)

	if artifact, ok := uc.Store.Lookup(fileName); ok {
		metrics.ArtifactCacheHits.Inc()
		slog.Info("artifact cache hit", slog.String("file", fileName))
		result.Artifact = artifact
		result.CacheHit = true
		return nil
	}
	uc.Store.EvictOldestIfOverLimit()

	outputPath := uc.Store.PathFor(fileName)
	uc.publish(domain.ProgressEvent{ID: result.ID, ContentID: result.ContentID, Stage: domain.StageExtracting, Percent: -1, FileName: fileName})

	started := time.Now()
	err := uc.Magnet.Fetch(ctx, req.SourceURL, req.Kind, outputPath, func(percent float64) {
		uc.publish(domain.ProgressEvent{ID: result.ID, ContentID: result.ContentID, Stage: domain.StageExtracting, Percent: percent, FileName: fileName})
	})
	metrics.ExtractionDuration.WithLabelValues("torrent").Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("torrent", domain.ErrorCode(err)).Inc()
		return err
	}
	metrics.ExtractionsTotal.WithLabelValues("torrent", "success").Inc()
	result.Strategy = "torrent"
	return uc.verify(ctx, outputPath, fileName, result)
}

// extract walks the strategy chain. Only a stale-source signal moves to the
// next tier; every other failure surfaces immediately.
func (uc RetrieveMedia) extract(ctx context.Context, input ports.ExtractInput) (string, error) {
	if len(uc.Chain) == 0 {
		return "", fmt.Errorf("%w: no extractor configured", domain.ErrToolMissing)
	}
	if uc.Sem != nil {
		if err := uc.Sem.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer uc.Sem.Release(1)
	}

	var lastErr error
	for i, strategy := range uc.Chain {
		started := time.Now()
		metrics.ActiveExtractions.Inc()
		err := strategy.Extract(ctx, input)
		metrics.ActiveExtractions.Dec()
		metrics.ExtractionDuration.WithLabelValues(strategy.Name()).Observe(time.Since(started).Seconds())

		if err == nil {
			metrics.ExtractionsTotal.WithLabelValues(strategy.Name(), "success").Inc()
			return strategy.Name(), nil
		}
		metrics.ExtractionsTotal.WithLabelValues(strategy.Name(), domain.ErrorCode(err)).Inc()
		lastErr = err

		if errors.Is(err, domain.ErrSourceStale) && i+1 < len(uc.Chain) {
			slog.Warn("extractor reported stale source, falling back",
				slog.String("strategy", strategy.Name()),
				slog.String("next", uc.Chain[i+1].Name()),
				slog.Any("error", err),
			)
			continue
		}
		return strategy.Name(), err
	}
	return "", lastErr
}

// verify enforces the non-empty artifact invariant and probes the result.
func (uc RetrieveMedia) verify(ctx context.Context, outputPath, fileName string, result *RetrieveResult) error {
	stat, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("%w: output file missing: %v", domain.ErrExtractionFailed, err)
	}
	if stat.Size() == 0 {
		_ = os.Remove(outputPath)
		return fmt.Errorf("%w: %s", domain.ErrEmptyArtifact, fileName)
	}
	result.Artifact = domain.Artifact{Path: outputPath, FileName: fileName, SizeBytes: stat.Size()}

	if uc.Prober != nil {
		info, err := uc.Prober.Probe(ctx, outputPath)
		if err != nil {
			slog.Debug("artifact probe failed",
				slog.String("file", fileName),
				slog.Any("error", err),
			)
		} else {
			result.Info = info
		}
	}
	return nil
}

func (uc RetrieveMedia) finish(ctx context.Context, req domain.RetrievalRequest, result RetrieveResult, runErr error, started time.Time) {
	if runErr != nil {
		code := domain.ErrorCode(runErr)
		uc.publish(domain.ProgressEvent{ID: result.ID, ContentID: result.ContentID, Stage: domain.StageFailed, Percent: -1, ErrorCode: code})
		slog.Warn("retrieval failed",
			slog.String("id", result.ID),
			slog.String("url", req.SourceURL),
			slog.String("code", code),
			slog.Any("error", runErr),
		)
		uc.record(ctx, req, result, domain.DownloadFailed, code, started)
		return
	}
	uc.publish(domain.ProgressEvent{ID: result.ID, ContentID: result.ContentID, Stage: domain.StageDone, Percent: 100, FileName: result.Artifact.FileName})
	slog.Info("retrieval complete",
		slog.String("id", result.ID),
		slog.String("file", result.Artifact.FileName),
		slog.Int64("size", result.Artifact.SizeBytes),
		slog.String("strategy", result.Strategy),
		slog.Bool("cacheHit", result.CacheHit),
		slog.Duration("elapsed", uc.now().Sub(started)),
	)
	uc.record(ctx, req, result, domain.DownloadDone, "", started)
}

func (uc RetrieveMedia) record(ctx context.Context, req domain.RetrievalRequest, result RetrieveResult, status domain.DownloadStatus, code string, started time.Time) {
	if uc.History == nil {
		return
	}
	rec := domain.DownloadRecord{
		ID:        result.ID,
		ContentID: result.ContentID,
		SourceURL: req.SourceURL,
		Title:     result.Title,
		Kind:      req.Kind,
		Quality:   req.Tier,
		FileName:  result.Artifact.FileName,
		SizeBytes: result.Artifact.SizeBytes,
		Status:    status,
		ErrorCode: code,
		CreatedAt: started,
		UpdatedAt: uc.now(),
	}
	if err := uc.History.Upsert(ctx, rec); err != nil {
		slog.Warn("history upsert failed",
			slog.String("id", rec.ID),
			slog.Any("error", err),
		)
	}
}

func (uc RetrieveMedia) progressFunc(jobID, contentID, fileName string) func(float64) {
	return func(percent float64) {
		uc.publish(domain.ProgressEvent{
			ID:        jobID,
			ContentID: contentID,
			Stage:     domain.StageExtracting,
			Percent:   percent,
			FileName:  fileName,
		})
	}
}

func (uc RetrieveMedia) publish(ev domain.ProgressEvent) {
	if uc.Progress != nil {
		uc.Progress.Publish(ev)
	}
}

func (uc RetrieveMedia) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now().UTC()
}

// magnetDisplayName derives a stable artifact stem for a magnet link: the dn
// parameter when present, the infohash otherwise.
func magnetDisplayName(magnetURI string) string {
	trimmed := strings.TrimSpace(magnetURI)
	if idx := strings.IndexByte(trimmed, '?'); idx >= 0 {
		if values, err := url.ParseQuery(trimmed[idx+1:]); err == nil {
			if dn := strings.TrimSpace(values.Get("dn")); dn != "" {
				return dn
			}
		}
	}
	if hash := magnetInfoHash(trimmed); hash != "" {
		return hash
	}
	return "magnet"
}

func magnetInfoHash(magnetURI string) string {
	lower := strings.ToLower(strings.TrimSpace(magnetURI))
	idx := strings.Index(lower, "xt=urn:btih:")
	if idx == -1 {
		return ""
	}
	rest := lower[idx+len("xt=urn:btih:"):]
	if end := strings.IndexByte(rest, '&'); end != -1 {
		rest = rest[:end]
	}
	return rest
}
