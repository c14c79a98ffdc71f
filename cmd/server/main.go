package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/semaphore"

	apihttp "mediagate/internal/api/http"
	"mediagate/internal/app"
	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
	"mediagate/internal/metrics"
	mongorepo "mediagate/internal/repository/mongo"
	"mediagate/internal/services/media/convertapi"
	"mediagate/internal/services/media/ffprobe"
	"mediagate/internal/services/media/metadata"
	"mediagate/internal/services/media/native"
	"mediagate/internal/services/media/resolver"
	"mediagate/internal/services/media/tools"
	"mediagate/internal/services/media/torrentfetch"
	"mediagate/internal/services/media/ytdlp"
	"mediagate/internal/services/subtitle"
	"mediagate/internal/storage/artifacts"
	"mediagate/internal/telemetry"
	"mediagate/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

var version = "dev"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "mediagate", version)
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "mediagate"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("mediaCacheDir", cfg.MediaCacheDir),
		slog.String("subtitleCacheDir", cfg.SubtitleCacheDir),
		slog.Int64("cacheMaxFiles", cfg.CacheMaxFiles),
		slog.Bool("historyEnabled", cfg.MongoURI != ""),
		slog.Bool("magnetEnabled", cfg.TorrentDataDir != ""),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	requirements := tools.Defaults(cfg.YTDLPPath)
	if err := tools.Verify(ctx, requirements); err != nil {
		logger.Error("tool check failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var mongoClient *mongo.Client
	var historyRepo ports.HistoryRepository
	if cfg.MongoURI != "" {
		client, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err == nil {
			err = client.Ping(ctx, readpref.Primary())
		}
		if err != nil {
			logger.Warn("mongo unavailable, download history disabled", slog.String("error", err.Error()))
		} else {
			mongoClient = client
			repo := mongorepo.NewRepository(client, cfg.MongoDatabase, cfg.MongoCollection)
			if err := repo.EnsureIndexes(ctx); err != nil {
				logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
			}
			historyRepo = repo
		}
	}

	mediaStore := artifacts.New(cfg.MediaCacheDir, int(cfg.CacheMaxFiles), logger)
	subtitleStore := artifacts.New(cfg.SubtitleCacheDir, int(cfg.CacheMaxFiles), logger)
	if err := mediaStore.Ensure(); err != nil {
		logger.Error("media cache dir init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := subtitleStore.Ensure(); err != nil {
		logger.Error("subtitle cache dir init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	listTimeout := time.Duration(cfg.ListTimeoutSec) * time.Second
	extractTimeout := time.Duration(cfg.ExtractTimeoutSec) * time.Second

	nativeClient := native.New(
		native.WithListTimeout(listTimeout),
		native.WithExtractTimeout(extractTimeout),
	)
	ytdlpClient := ytdlp.New(cfg.YTDLPPath,
		ytdlp.WithListTimeout(listTimeout),
		ytdlp.WithExtractTimeout(extractTimeout),
		ytdlp.WithRetries(int(cfg.ExtractRetries)),
	)
	formatResolver := resolver.New(nativeClient, ytdlpClient)

	metaCacheOpts := []metadata.CacheOption{
		metadata.WithTTL(time.Duration(cfg.MetadataTTLSec) * time.Second),
	}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       int(cfg.RedisDB),
		})
		backend := metadata.NewRedisCacheBackend(redisClient)
		if err := backend.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, metadata cache stays in-memory", slog.String("error", err.Error()))
		} else {
			metaCacheOpts = append(metaCacheOpts, metadata.WithRedis(backend))
		}
	}
	metaCache := metadata.NewCache(metadata.NewClient(metadata.Config{}), metaCacheOpts...)

	var magnetFetcher ports.MagnetFetcher
	var torrentCloser interface{ Close() error }
	if cfg.TorrentDataDir != "" {
		fetcher, err := torrentfetch.New(cfg.TorrentDataDir)
		if err != nil {
			logger.Warn("magnet fetcher init failed, magnet links disabled", slog.String("error", err.Error()))
		} else {
			magnetFetcher = fetcher
			torrentCloser = fetcher
		}
	}

	prober := timedProber{
		prober:  ffprobe.New(cfg.FFProbePath),
		timeout: time.Duration(cfg.ProbeTimeoutSec) * time.Second,
	}

	convertClient := convertapi.NewClient(convertapi.Config{
		BaseURL: cfg.ConvertAPIURL,
		APIKey:  cfg.ConvertAPIKey,
	})

	retrieveUC := &usecase.RetrieveMedia{
		ContentID: native.ExtractContentID,
		Metadata:  metaCache,
		Resolver:  formatResolver,
		Chain:     []ports.Extractor{nativeClient, ytdlpClient},
		Magnet:    magnetFetcher,
		Store:     mediaStore,
		Prober:    prober,
		History:   historyRepo,
		ToolCheck: func(ctx context.Context) error {
			return tools.Verify(ctx, requirements)
		},
		Sem:     semaphore.NewWeighted(cfg.MaxConcurrentExtractions),
		Retries: int(cfg.ExtractRetries),
	}
	listFormatsUC := usecase.ListFormats{
		ContentID: native.ExtractContentID,
		Resolver:  formatResolver,
	}
	subtitleUC := &usecase.FetchSubtitle{
		ContentID: native.ExtractContentID,
		Captions:  nativeClient,
		Fetcher:   subtitle.NewFetcher(),
		Store:     subtitleStore,
	}
	convertUC := usecase.ConvertRemote{Client: convertClient}

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithFormats(listFormatsUC),
		apihttp.WithSubtitles(subtitleUC),
		apihttp.WithConvert(convertUC),
		apihttp.WithMetadata(metaCache, native.ExtractContentID),
		apihttp.WithFileDirs(mediaStore.Dir(), subtitleStore.Dir()),
		apihttp.WithToolStatus(func(ctx context.Context) []tools.Status {
			return tools.CheckBinaries(ctx, requirements)
		}),
		apihttp.WithDownloadLimit(int(cfg.DownloadRatePoints), time.Duration(cfg.DownloadRateWindowSec)*time.Second),
		apihttp.WithSubtitleLimit(int(cfg.SubtitleRatePoints), time.Duration(cfg.SubtitleRateWindowSec)*time.Second),
		apihttp.WithGlobalRate(float64(cfg.GlobalRateRPS), int(cfg.GlobalRateBurst)),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
	}
	if historyRepo != nil {
		serverOpts = append(serverOpts, apihttp.WithHistory(historyRepo))
	}

	handler := apihttp.NewServer(retrieveUC, serverOpts...)

	// The server is also the progress sink; wire it after creation, before
	// any request can run.
	retrieveUC.Progress = handler
	subtitleUC.Progress = handler

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if torrentCloser != nil {
		if err := torrentCloser.Close(); err != nil {
			logger.Warn("magnet fetcher close error", slog.String("error", err.Error()))
		}
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

// timedProber caps every probe with the configured timeout. The prober
// itself only applies its own ceiling when the context has no deadline.
type timedProber struct {
	prober  *ffprobe.Prober
	timeout time.Duration
}

func (p timedProber) Probe(ctx context.Context, filePath string) (domain.MediaInfo, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.prober.Probe(ctx, filePath)
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
