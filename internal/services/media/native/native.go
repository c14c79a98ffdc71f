package native

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
)

const (
	defaultListTimeout    = 30 * time.Second
	defaultExtractTimeout = 10 * time.Minute
)

// Option configures the client.
type Option func(*Client)

// WithHTTPClient replaces the transport used for metadata and stream calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.yt.HTTPClient = hc
		}
	}
}

// WithListTimeout bounds metadata and format-listing calls.
func WithListTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.listTimeout = d
		}
	}
}

// WithExtractTimeout bounds the stream download.
func WithExtractTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.extractTimeout = d
		}
	}
}

// Client is the library-backed tier: cheap direct calls against the source,
// brittle against upstream protocol drift. Failures caused by drift surface
// as domain.ErrSourceStale so the caller can fall through to the subprocess
// tier.
type Client struct {
	yt             *youtube.Client
	listTimeout    time.Duration
	extractTimeout time.Duration
}

func New(opts ...Option) *Client {
	client := &Client{
		yt:             &youtube.Client{HTTPClient: &http.Client{}},
		listTimeout:    defaultListTimeout,
		extractTimeout: defaultExtractTimeout,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Name() string { return "native" }

// ExtractContentID validates the URL shape and pulls the stable content
// identifier out of it.
func ExtractContentID(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: missing scheme or host", domain.ErrInvalidInput)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidInput, parsed.Scheme)
	}
	id, err := youtube.ExtractVideoID(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return id, nil
}

// ListFormats queries the source through the library and maps its format
// table to descriptors.
func (c *Client) ListFormats(ctx context.Context, sourceURL string) ([]domain.FormatDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	video, err := c.yt.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return nil, fmt.Errorf("list formats: %w", classifyError(err))
	}
	descriptors := make([]domain.FormatDescriptor, 0, len(video.Formats))
	for i := range video.Formats {
		descriptors = append(descriptors, descriptorFromFormat(&video.Formats[i]))
	}
	return descriptors, nil
}

// Extract downloads the selected format stream straight to
// input.OutputPath. The library does not transcode, so the stream bytes land
// in the file as served by the source.
func (c *Client) Extract(ctx context.Context, input ports.ExtractInput) error {
	ctx, cancel := context.WithTimeout(ctx, c.extractTimeout)
	defer cancel()

	video, err := c.yt.GetVideoContext(ctx, input.SourceURL)
	if err != nil {
		return fmt.Errorf("fetch video: %w", classifyError(err))
	}
	format := findFormat(video, input.FormatID, input.Kind)
	if format == nil {
		return fmt.Errorf("%w: format %q not offered by source", domain.ErrFormatRejected, input.FormatID)
	}

	stream, size, err := c.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return fmt.Errorf("open stream: %w", classifyError(err))
	}
	defer stream.Close()

	tmp := input.OutputPath + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	var writer io.Writer = file
	if input.OnProgress != nil && size > 0 {
		writer = io.MultiWriter(file, &progressWriter{total: size, report: input.OnProgress})
	}

	written, err := io.Copy(writer, stream)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", domain.ErrExtractionTimeout, c.extractTimeout)
		}
		return fmt.Errorf("download stream: %w", classifyError(err))
	}
	if err := os.Rename(tmp, input.OutputPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("finalize output: %w", err)
	}

	slog.Debug("library extraction complete",
		slog.String("contentId", input.ContentID),
		slog.Int64("bytes", written),
	)
	return nil
}

// CaptionTrackURL resolves the caption track for the requested language.
// Manually authored tracks win over auto-generated ones.
func (c *Client) CaptionTrackURL(ctx context.Context, sourceURL, language string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	video, err := c.yt.GetVideoContext(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("fetch captions: %w", classifyError(err))
	}
	track := pickCaptionTrack(video.CaptionTracks, language)
	if track == nil {
		return "", fmt.Errorf("%w: no caption track for language %q", domain.ErrContentUnavailable, language)
	}
	return track.BaseURL, nil
}

// classifyError maps library errors onto the retrieval taxonomy. Cipher and
// signed-URL failures are the drift signals that justify the subprocess
// fallback; restricted content is terminal on every tier.
func classifyError(err error) error {
	switch {
	case errors.Is(err, youtube.ErrCipherNotFound):
		return fmt.Errorf("%w: %v", domain.ErrSourceStale, err)
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrVideoPrivate),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
	case errors.Is(err, youtube.ErrInvalidPlaylist),
		errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		switch int(statusErr) {
		case http.StatusForbidden, http.StatusGone:
			return fmt.Errorf("%w: %v", domain.ErrSourceStale, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrNetworkFault, err)
	}

	var playability *youtube.ErrPlayabiltyStatus
	if errors.As(err, &playability) {
		return fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
	}

	return fmt.Errorf("%w: %v", domain.ErrNetworkFault, err)
}

func descriptorFromFormat(f *youtube.Format) domain.FormatDescriptor {
	kind := domain.KindAudio
	if f.Width > 0 || f.Height > 0 {
		kind = domain.KindVideo
	}
	quality := f.QualityLabel
	if quality == "" {
		if bitrate := formatBitrate(f); bitrate > 0 {
			quality = fmt.Sprintf("%dk", bitrate/1000)
		}
	}
	return domain.FormatDescriptor{
		ID:        strconv.Itoa(f.ItagNo),
		Quality:   quality,
		Container: mimeToExt(f.MimeType),
		Kind:      kind,
	}
}

func formatBitrate(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// findFormat returns the stream matching the selected format id, or the best
// suited stream for the media kind when no id was carried through.
func findFormat(video *youtube.Video, formatID string, kind domain.MediaKind) *youtube.Format {
	if formatID != "" {
		for i := range video.Formats {
			if strconv.Itoa(video.Formats[i].ItagNo) == formatID {
				return &video.Formats[i]
			}
		}
		return nil
	}
	for i := range video.Formats {
		f := &video.Formats[i]
		if kind == domain.KindAudio {
			if f.AudioChannels > 0 && f.Width == 0 && f.Height == 0 {
				return f
			}
			continue
		}
		if f.AudioChannels > 0 && f.Width > 0 && f.Height > 0 {
			return f
		}
	}
	return nil
}

func pickCaptionTrack(tracks []youtube.CaptionTrack, language string) *youtube.CaptionTrack {
	if len(tracks) == 0 {
		return nil
	}
	if language == "" {
		for i := range tracks {
			if tracks[i].Kind != "asr" {
				return &tracks[i]
			}
		}
		return &tracks[0]
	}
	// Exact manual match, exact auto match, then a prefix match so "en"
	// still finds "en-US".
	var autoExact, prefix *youtube.CaptionTrack
	for i := range tracks {
		track := &tracks[i]
		if track.LanguageCode == language {
			if track.Kind != "asr" {
				return track
			}
			if autoExact == nil {
				autoExact = track
			}
			continue
		}
		if prefix == nil && strings.HasPrefix(track.LanguageCode, language) {
			prefix = track
		}
	}
	if autoExact != nil {
		return autoExact
	}
	return prefix
}

func mimeToExt(mime string) string {
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = mime[:i]
	}
	parts := strings.Split(mime, "/")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "bin"
}

// progressWriter reports whole-percent completion steps.
type progressWriter struct {
	total   int64
	written int64
	lastPct int
	report  func(float64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	pct := int(float64(w.written) / float64(w.total) * 100)
	if pct > w.lastPct {
		w.lastPct = pct
		w.report(float64(pct))
	}
	return len(p), nil
}
