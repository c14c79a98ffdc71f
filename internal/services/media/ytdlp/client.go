package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
)

// DefaultBinary is the extraction tool looked up on PATH when no explicit
// path is configured.
const DefaultBinary = "yt-dlp"

const (
	defaultListTimeout    = 30 * time.Second
	defaultExtractTimeout = 10 * time.Minute
	defaultRetries        = 3

	maxDiagnosticLines = 40
)

var (
	progressPattern  = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	formatIDPattern  = regexp.MustCompile(`^\d+$`)
	qualityPattern   = regexp.MustCompile(`^\d{3,4}p$`)
	audioRatePattern = regexp.MustCompile(`^\d+k$`)
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(c *Client) {
		if executor != nil {
			c.exec = executor
		}
	}
}

// WithListTimeout bounds the format-listing invocation.
func WithListTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.listTimeout = d
		}
	}
}

// WithExtractTimeout bounds the media extraction invocation.
func WithExtractTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.extractTimeout = d
		}
	}
}

// WithRetries sets the retry counters passed to the tool for transient
// network faults.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// Client wraps the extraction subprocess. The tool reports failures only
// through its exit code and free-text diagnostics, so every error path runs
// through Classify.
type Client struct {
	binary         string
	listTimeout    time.Duration
	extractTimeout time.Duration
	retries        int
	exec           Executor
}

// New constructs a subprocess client for the given binary. An empty binary
// falls back to DefaultBinary.
func New(binary string, opts ...Option) *Client {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = DefaultBinary
	}
	client := &Client{
		binary:         binary,
		listTimeout:    defaultListTimeout,
		extractTimeout: defaultExtractTimeout,
		retries:        defaultRetries,
		exec:           commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) Name() string { return "ytdlp" }

// Version probes the tool with a short invocation. A failure here means the
// binary is absent or broken and is reported as a configuration error.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version string
	err := c.exec.Run(ctx, c.binary, []string{"--version"}, func(line string) {
		if version == "" {
			version = strings.TrimSpace(line)
		}
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s --version: %v", domain.ErrToolMissing, c.binary, err)
	}
	if version == "" {
		return "", fmt.Errorf("%w: %s --version produced no output", domain.ErrToolMissing, c.binary)
	}
	return version, nil
}

// ListFormats invokes the tool's format table listing and parses its
// line-oriented output into descriptors. Rows are recognized by a leading
// numeric format code; rows mentioning video are classified as video, the
// rest as audio.
func (c *Client) ListFormats(ctx context.Context, sourceURL string) ([]domain.FormatDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	var (
		descriptors []domain.FormatDescriptor
		tail        diagnosticTail
	)
	args := []string{"--no-playlist", "-F", sourceURL}
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		tail.add(line)
		if desc, ok := parseFormatLine(line); ok {
			descriptors = append(descriptors, desc)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("list formats: %w", c.runError(ctx, err, tail, c.listTimeout))
	}
	return descriptors, nil
}

// Extract runs the tool against the resolved format and waits for it to
// produce input.OutputPath. Progress lines are forwarded to
// input.OnProgress; the caller verifies the artifact afterwards.
func (c *Client) Extract(ctx context.Context, input ports.ExtractInput) error {
	ctx, cancel := context.WithTimeout(ctx, c.extractTimeout)
	defer cancel()

	retries := input.Retries
	if retries <= 0 {
		retries = c.retries
	}
	args := buildExtractArgs(input, retries)

	slog.Debug("invoking extraction tool",
		slog.String("binary", c.binary),
		slog.String("contentId", input.ContentID),
		slog.String("formatId", input.FormatID),
		slog.String("output", input.OutputPath),
	)

	var tail diagnosticTail
	err := c.exec.Run(ctx, c.binary, args, func(line string) {
		tail.add(line)
		if input.OnProgress == nil {
			return
		}
		if percent, ok := parseProgress(line); ok {
			input.OnProgress(percent)
		}
	})
	if err != nil {
		classified := c.runError(ctx, err, tail, c.extractTimeout)
		slog.Warn("extraction tool failed",
			slog.String("contentId", input.ContentID),
			slog.String("code", domain.ErrorCode(classified)),
			slog.String("diagnostic", tail.lastRelevant()),
		)
		return fmt.Errorf("extract: %w", classified)
	}
	return nil
}

// runError turns a subprocess failure into a taxonomy error. Deadline expiry
// on the derived context takes priority over diagnostic matching.
func (c *Client) runError(ctx context.Context, err error, tail diagnosticTail, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", domain.ErrExtractionTimeout, timeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrToolMissing, c.binary)
	}
	kind := Classify(tail.join())
	diagnostic := tail.lastRelevant()
	if diagnostic == "" {
		return fmt.Errorf("%w: %v", kind, err)
	}
	return fmt.Errorf("%w: %s", kind, diagnostic)
}

func buildExtractArgs(input ports.ExtractInput, retries int) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"--retries", strconv.Itoa(retries),
		"--fragment-retries", strconv.Itoa(retries),
	}
	if input.Kind == domain.KindAudio {
		if input.FormatID != "" {
			args = append(args, "-f", input.FormatID)
		}
		args = append(args, "-x", "--audio-format", "mp3")
	} else {
		if input.FormatID != "" {
			args = append(args, "-f", input.FormatID+"+bestaudio/"+input.FormatID)
		} else {
			args = append(args, "-f", "bestvideo+bestaudio/best")
		}
		args = append(args, "--merge-output-format", "mp4")
	}
	args = append(args, "-o", input.OutputPath, input.SourceURL)
	return args
}

func parseProgress(line string) (float64, bool) {
	m := progressPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return 0, false
	}
	percent, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return percent, true
}

// parseFormatLine extracts one descriptor from a format table row.
// Non-row lines (headers, notes, storyboard entries) report ok=false.
func parseFormatLine(line string) (domain.FormatDescriptor, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || !formatIDPattern.MatchString(fields[0]) {
		return domain.FormatDescriptor{}, false
	}
	desc := domain.FormatDescriptor{
		ID:        fields[0],
		Container: fields[1],
		Kind:      domain.KindAudio,
	}
	if strings.Contains(strings.ToLower(line), "video") {
		desc.Kind = domain.KindVideo
	}
	for _, field := range fields[2:] {
		token := strings.TrimSuffix(field, ",")
		if desc.Kind == domain.KindVideo && qualityPattern.MatchString(token) {
			desc.Quality = token
			break
		}
		if desc.Kind == domain.KindAudio && audioRatePattern.MatchString(token) {
			desc.Quality = token
			break
		}
	}
	return desc, true
}

// diagnosticTail keeps the last lines of tool output for classification.
type diagnosticTail struct {
	lines []string
}

func (t *diagnosticTail) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(t.lines) == maxDiagnosticLines {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:maxDiagnosticLines-1]
	}
	t.lines = append(t.lines, line)
}

func (t *diagnosticTail) join() string {
	return strings.Join(t.lines, "\n")
}

// lastRelevant prefers the most recent line mentioning an error over the
// plain last line.
func (t *diagnosticTail) lastRelevant() string {
	for i := len(t.lines) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(t.lines[i]), "error") {
			return t.lines[i]
		}
	}
	if len(t.lines) == 0 {
		return ""
	}
	return t.lines[len(t.lines)-1]
}
