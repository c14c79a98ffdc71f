package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
	"mediagate/internal/services/media/convertapi"
	"mediagate/internal/services/media/tools"
	"mediagate/internal/usecase"
)

type DownloadUseCase interface {
	Execute(ctx context.Context, req domain.RetrievalRequest) (usecase.RetrieveResult, error)
}

type ListFormatsUseCase interface {
	Execute(ctx context.Context, sourceURL string) (usecase.FormatInventory, error)
}

type SubtitleUseCase interface {
	Execute(ctx context.Context, sourceURL, language, targetFormat string) (usecase.SubtitleResult, error)
}

type ConvertUseCase interface {
	Execute(ctx context.Context, sourceURL string) (convertapi.Result, error)
}

const (
	defaultDownloadPoints = 30
	defaultDownloadWindow = time.Minute
	defaultSubtitlePoints = 10
	defaultSubtitleWindow = 10 * time.Second
	defaultGlobalRPS      = 100
	defaultGlobalBurst    = 200
)

type Server struct {
	download  DownloadUseCase
	formats   ListFormatsUseCase
	subtitles SubtitleUseCase
	convert   ConvertUseCase
	history   ports.HistoryRepository
	metadata  ports.MetadataAPI
	contentID func(rawURL string) (string, error)

	mediaDir    string
	subtitleDir string
	toolStatus  func(ctx context.Context) []tools.Status

	downloadLimiter *fixedWindow
	subtitleLimiter *keyedWindow
	globalRPS       float64
	globalBurst     int

	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithFormats(uc ListFormatsUseCase) ServerOption {
	return func(s *Server) {
		s.formats = uc
	}
}

func WithSubtitles(uc SubtitleUseCase) ServerOption {
	return func(s *Server) {
		s.subtitles = uc
	}
}

func WithConvert(uc ConvertUseCase) ServerOption {
	return func(s *Server) {
		s.convert = uc
	}
}

func WithHistory(repo ports.HistoryRepository) ServerOption {
	return func(s *Server) {
		s.history = repo
	}
}

func WithMetadata(api ports.MetadataAPI, contentID func(rawURL string) (string, error)) ServerOption {
	return func(s *Server) {
		s.metadata = api
		s.contentID = contentID
	}
}

// WithFileDirs sets the cache directories /files/ serves artifacts from.
func WithFileDirs(mediaDir, subtitleDir string) ServerOption {
	return func(s *Server) {
		s.mediaDir = strings.TrimSpace(mediaDir)
		s.subtitleDir = strings.TrimSpace(subtitleDir)
	}
}

func WithToolStatus(check func(ctx context.Context) []tools.Status) ServerOption {
	return func(s *Server) {
		s.toolStatus = check
	}
}

// WithDownloadLimit configures the shared fixed-window limiter over the
// download endpoint. points <= 0 disables it.
func WithDownloadLimit(points int, window time.Duration) ServerOption {
	return func(s *Server) {
		s.downloadLimiter = newFixedWindow(points, window)
	}
}

// WithSubtitleLimit configures the per-client fixed-window limiter over the
// subtitle endpoint. points <= 0 disables it.
func WithSubtitleLimit(points int, window time.Duration) ServerOption {
	return func(s *Server) {
		s.subtitleLimiter = newKeyedWindow(points, window)
	}
}

// WithGlobalRate configures the server-wide token-bucket limiter.
func WithGlobalRate(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.globalRPS = rps
		s.globalBurst = burst
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(download DownloadUseCase, opts ...ServerOption) *Server {
	s := &Server{
		download:    download,
		globalRPS:   defaultGlobalRPS,
		globalBurst: defaultGlobalBurst,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.downloadLimiter == nil {
		s.downloadLimiter = newFixedWindow(defaultDownloadPoints, defaultDownloadWindow)
	}
	if s.subtitleLimiter == nil {
		s.subtitleLimiter = newKeyedWindow(defaultSubtitlePoints, defaultSubtitleWindow)
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/formats", s.handleFormats)
	mux.HandleFunc("/api/info", s.handleInfo)
	mux.HandleFunc("/api/subtitles", s.handleSubtitles)
	mux.HandleFunc("/api/convert", s.handleConvert)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistoryByID)
	mux.HandleFunc("/files/", s.handleFiles)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "mediagate",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(s.globalRPS, s.globalBurst, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// Publish forwards a retrieval progress event to connected WebSocket
// clients. Implements the progress sink the orchestrator publishes to.
func (s *Server) Publish(ev domain.ProgressEvent) {
	if s.wsHub != nil {
		s.wsHub.Publish(ev)
	}
}

// Close disconnects all WebSocket clients and stops the hub.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
