package artifacts

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"mediagate/internal/domain"
	"mediagate/internal/metrics"
)

const (
	// DefaultMaxFiles is the retention cap applied when none is configured.
	DefaultMaxFiles = 10

	maxNameLength = 100
)

// Store manages one bounded directory of retrieved artifacts. Eviction is
// lazy: callers run it once per write attempt, so the directory may briefly
// hold maxFiles+1 entries under concurrent writers.
type Store struct {
	dir      string
	maxFiles int
	logger   *slog.Logger
}

func New(dir string, maxFiles int, logger *slog.Logger) *Store {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, maxFiles: maxFiles, logger: logger}
}

func (s *Store) Dir() string {
	return s.dir
}

// Ensure creates the directory if it does not exist yet.
func (s *Store) Ensure() error {
	return os.MkdirAll(s.dir, 0o755)
}

// PathFor returns the absolute location a named artifact would occupy.
func (s *Store) PathFor(name string) string {
	return filepath.Join(s.dir, name)
}

// Lookup reports whether a named artifact already exists. A zero-size file is
// deleted on sight and reported as absent.
func (s *Store) Lookup(name string) (domain.Artifact, bool) {
	path := s.PathFor(name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return domain.Artifact{}, false
	}
	if info.Size() == 0 {
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove empty artifact",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return domain.Artifact{}, false
	}
	return domain.Artifact{Path: path, FileName: name, SizeBytes: info.Size()}, true
}

// EvictOldestIfOverLimit deletes the single oldest regular file once the
// directory holds more than the retention cap. A missing directory is a
// no-op; a file vanishing between listing and removal counts as handled.
func (s *Store) EvictOldestIfOverLimit() {
	entries, err := gatherEntries(s.dir)
	if err != nil {
		s.logger.Warn("artifact cache listing failed",
			slog.String("dir", s.dir),
			slog.String("error", err.Error()))
		metrics.ArtifactEvictionErrors.Inc()
		return
	}
	if len(entries) <= s.maxFiles {
		return
	}

	oldest := oldestEntry(entries)
	if oldest == nil {
		return
	}
	if err := os.Remove(oldest.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("artifact eviction failed",
			slog.String("path", oldest.path),
			slog.String("error", err.Error()))
		metrics.ArtifactEvictionErrors.Inc()
		return
	}
	metrics.ArtifactEvictions.Inc()
	s.logger.Debug("evicted oldest artifact",
		slog.String("path", oldest.path),
		slog.Int("remaining", len(entries)-1))
}

type dirEntry struct {
	path    string
	modTime time.Time
}

func gatherEntries(dir string) ([]dirEntry, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	result := make([]dirEntry, 0, len(items))
	for _, item := range items {
		if !item.Type().IsRegular() {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		result = append(result, dirEntry{
			path:    filepath.Join(dir, item.Name()),
			modTime: info.ModTime(),
		})
	}
	return result, nil
}

func oldestEntry(entries []dirEntry) *dirEntry {
	if len(entries) == 0 {
		return nil
	}
	oldest := 0
	for i := 1; i < len(entries); i++ {
		if entries[i].modTime.Before(entries[oldest].modTime) {
			oldest = i
		}
	}
	return &entries[oldest]
}

var whitespaceRun = regexp.MustCompile(`[\s_]+`)

// SanitizeTitle turns an arbitrary content title into a filesystem-safe stem:
// hostile characters dropped or dashed, whitespace runs collapsed to single
// underscores, length capped.
func SanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "", "\"", "", "<", "", ">", "", "|", "", "\x00", "")
	title = replacer.Replace(title)
	title = whitespaceRun.ReplaceAllString(title, "_")
	title = strings.Trim(title, "_-.")
	if len(title) > maxNameLength {
		title = strings.Trim(title[:maxNameLength], "_-.")
	}
	return title
}

// BuildFileName derives the deterministic artifact name for a request: the
// sanitized title, a quality suffix for video, and the kind's extension.
func BuildFileName(title, qualityLabel string, kind domain.MediaKind) string {
	stem := SanitizeTitle(title)
	if stem == "" {
		stem = "media"
	}
	if kind == domain.KindVideo && qualityLabel != "" {
		stem += "_" + qualityLabel
	}
	return stem + kind.Extension()
}
