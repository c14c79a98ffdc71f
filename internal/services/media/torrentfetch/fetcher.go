package torrentfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anacrolix/torrent"

	"mediagate/internal/domain"
)

// addMagnetTimeout caps the time we wait for the anacrolix client to accept
// a magnet link. AddMagnet can block on an internal client mutex when the
// client is busy resolving metadata for another torrent.
const (
	addMagnetTimeout    = 10 * time.Second
	defaultInfoTimeout  = 2 * time.Minute
	defaultFetchTimeout = 30 * time.Minute
	pollInterval        = time.Second
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mkv": {}, ".avi": {}, ".webm": {}, ".mov": {}, ".m4v": {}, ".ts": {},
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".m4a": {}, ".flac": {}, ".ogg": {}, ".wav": {}, ".aac": {}, ".opus": {},
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithInfoTimeout bounds the wait for torrent metadata. Zero-peer magnets
// never deliver metadata and are cut off here.
func WithInfoTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.infoTimeout = d
		}
	}
}

// WithFetchTimeout bounds the whole download.
func WithFetchTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.fetchTimeout = d
		}
	}
}

// Fetcher downloads one magnet link to completion and hands the largest
// media file over to the artifact cache. Each Fetch is a one-shot session:
// the torrent is dropped as soon as the file is secured.
type Fetcher struct {
	client       *torrent.Client
	dataDir      string
	infoTimeout  time.Duration
	fetchTimeout time.Duration
}

func New(dataDir string, opts ...Option) (*Fetcher, error) {
	clientConfig := torrent.NewDefaultClientConfig()
	clientConfig.DataDir = dataDir

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, fmt.Errorf("torrent client: %w", err)
	}
	f := &Fetcher{
		client:       client,
		dataDir:      dataDir,
		infoTimeout:  defaultInfoTimeout,
		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func NewWithClient(client *torrent.Client, dataDir string) *Fetcher {
	return &Fetcher{
		client:       client,
		dataDir:      dataDir,
		infoTimeout:  defaultInfoTimeout,
		fetchTimeout: defaultFetchTimeout,
	}
}

func (f *Fetcher) Close() error {
	if f.client == nil {
		return nil
	}
	errList := f.client.Close()
	if len(errList) > 0 {
		return errList[0]
	}
	return nil
}

// Fetch resolves the magnet, downloads the best matching media file and
// moves it to destPath.
func (f *Fetcher) Fetch(ctx context.Context, magnetURI string, kind domain.MediaKind, destPath string, onProgress func(float64)) error {
	if f.client == nil {
		return errors.New("torrent client not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	t, err := f.addMagnet(ctx, magnetURI)
	if err != nil {
		return err
	}
	defer t.Drop()

	select {
	case <-t.GotInfo():
	case <-time.After(f.infoTimeout):
		return fmt.Errorf("%w: metadata not received within %s", domain.ErrExtractionTimeout, f.infoTimeout)
	case <-ctx.Done():
		return f.ctxError(ctx)
	}

	files := t.Files()
	entries := make([]fileEntry, len(files))
	for i, file := range files {
		entries[i] = fileEntry{index: i, path: file.Path(), length: file.Length()}
	}
	chosen, ok := selectMediaEntry(entries, kind)
	if !ok {
		return fmt.Errorf("%w: torrent carries no media file", domain.ErrNoFormatAvailable)
	}

	slog.Info("fetching torrent file",
		slog.String("infoHash", t.InfoHash().HexString()),
		slog.String("file", chosen.path),
		slog.Int64("length", chosen.length),
	)

	// Starve everything except the chosen file.
	for i, file := range files {
		if i == chosen.index {
			continue
		}
		file.SetPriority(torrent.PiecePriorityNone)
	}
	target := files[chosen.index]
	target.SetPriority(torrent.PiecePriorityNormal)

	if err := f.waitForFile(ctx, target, onProgress); err != nil {
		return err
	}
	return moveFile(filepath.Join(f.dataDir, target.Path()), destPath)
}

// addMagnet runs AddMagnet behind a timeout so a busy client never blocks
// the request indefinitely. The goroutine may still complete after we bail;
// the orphaned torrent gets dropped.
func (f *Fetcher) addMagnet(ctx context.Context, magnetURI string) (*torrent.Torrent, error) {
	type addResult struct {
		t   *torrent.Torrent
		err error
	}
	ch := make(chan addResult, 1)
	go func() {
		t, err := f.client.AddMagnet(magnetURI)
		ch <- addResult{t, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, res.err)
		}
		return res.t, nil
	case <-time.After(addMagnetTimeout):
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, fmt.Errorf("%w: torrent client busy", domain.ErrExtractionFailed)
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.t != nil {
				res.t.Drop()
			}
		}()
		return nil, f.ctxError(ctx)
	}
}

func (f *Fetcher) waitForFile(ctx context.Context, file *torrent.File, onProgress func(float64)) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return f.ctxError(ctx)
		case <-ticker.C:
			completed := file.BytesCompleted()
			if onProgress != nil && file.Length() > 0 {
				onProgress(float64(completed) / float64(file.Length()) * 100)
			}
			if completed >= file.Length() {
				return nil
			}
		}
	}
}

func (f *Fetcher) ctxError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", domain.ErrExtractionTimeout, f.fetchTimeout)
	}
	return ctx.Err()
}

type fileEntry struct {
	index  int
	path   string
	length int64
}

// selectMediaEntry picks the largest file matching the requested kind and
// falls back to the largest media file of any kind.
func selectMediaEntry(entries []fileEntry, kind domain.MediaKind) (fileEntry, bool) {
	matched := fileEntry{index: -1}
	anyMedia := fileEntry{index: -1}
	for _, entry := range entries {
		class, ok := mediaKindOf(entry.path)
		if !ok {
			continue
		}
		if anyMedia.index < 0 || entry.length > anyMedia.length {
			anyMedia = entry
		}
		if class == kind && (matched.index < 0 || entry.length > matched.length) {
			matched = entry
		}
	}
	if matched.index >= 0 {
		return matched, true
	}
	if anyMedia.index >= 0 {
		return anyMedia, true
	}
	return fileEntry{}, false
}

func mediaKindOf(path string) (domain.MediaKind, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := videoExtensions[ext]; ok {
		return domain.KindVideo, true
	}
	if _, ok := audioExtensions[ext]; ok {
		return domain.KindAudio, true
	}
	return "", false
}

// moveFile renames when possible and copies across filesystems otherwise.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open fetched file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("copy fetched file: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flush destination: %w", err)
	}
	_ = os.Remove(src)
	return nil
}
