package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
	"mediagate/internal/services/media/convertapi"
	"mediagate/internal/services/media/tools"
	"mediagate/internal/usecase"
)

type fakeDownload struct {
	called int
	req    domain.RetrievalRequest
	result usecase.RetrieveResult
	err    error
}

func (f *fakeDownload) Execute(ctx context.Context, req domain.RetrievalRequest) (usecase.RetrieveResult, error) {
	f.called++
	f.req = req
	if f.err != nil {
		return usecase.RetrieveResult{}, f.err
	}
	return f.result, nil
}

type fakeFormats struct {
	called int
	url    string
	result usecase.FormatInventory
	err    error
}

func (f *fakeFormats) Execute(ctx context.Context, sourceURL string) (usecase.FormatInventory, error) {
	f.called++
	f.url = sourceURL
	if f.err != nil {
		return usecase.FormatInventory{}, f.err
	}
	return f.result, nil
}

type fakeSubtitles struct {
	called int
	url    string
	lang   string
	format string
	result usecase.SubtitleResult
	err    error
}

func (f *fakeSubtitles) Execute(ctx context.Context, sourceURL, language, targetFormat string) (usecase.SubtitleResult, error) {
	f.called++
	f.url = sourceURL
	f.lang = language
	f.format = targetFormat
	if f.err != nil {
		return usecase.SubtitleResult{}, f.err
	}
	return f.result, nil
}

type fakeConvert struct {
	called int
	url    string
	result convertapi.Result
	err    error
}

func (f *fakeConvert) Execute(ctx context.Context, sourceURL string) (convertapi.Result, error) {
	f.called++
	f.url = sourceURL
	if f.err != nil {
		return convertapi.Result{}, f.err
	}
	return f.result, nil
}

type fakeHistoryRepo struct {
	records   []domain.DownloadRecord
	rec       domain.DownloadRecord
	getErr    error
	deleteErr error
	listErr   error
	lastID    string
	lastLimit int
	deleted   []string
}

func (f *fakeHistoryRepo) Upsert(ctx context.Context, rec domain.DownloadRecord) error { return nil }

func (f *fakeHistoryRepo) Get(ctx context.Context, id string) (domain.DownloadRecord, error) {
	f.lastID = id
	if f.getErr != nil {
		return domain.DownloadRecord{}, f.getErr
	}
	return f.rec, nil
}

func (f *fakeHistoryRepo) ListRecent(ctx context.Context, limit int) ([]domain.DownloadRecord, error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func (f *fakeHistoryRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

type fakeMetadataAPI struct {
	called int
	id     string
	info   ports.ContentInfo
	err    error
}

func (f *fakeMetadataAPI) Lookup(ctx context.Context, contentID string) (ports.ContentInfo, error) {
	f.called++
	f.id = contentID
	if f.err != nil {
		return ports.ContentInfo{}, f.err
	}
	return f.info, nil
}

func doJSON(t *testing.T, server *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var envelope errorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v (body %q)", err, w.Body.String())
	}
	return envelope.Error
}

func TestDownloadSuccess(t *testing.T) {
	uc := &fakeDownload{result: usecase.RetrieveResult{
		ID:        "job-1",
		ContentID: "dQw4w9WgXcQ",
		Title:     "Test Video",
		Artifact:  domain.Artifact{Path: "/cache/Test_Video_1080p.mp4", FileName: "Test_Video_1080p.mp4", SizeBytes: 2048},
		Strategy:  "native",
	}}
	server := NewServer(uc, WithFileDirs("/cache", ""))
	defer server.Close()

	w := doJSON(t, server, http.MethodPost, "/api/download", `{"url":"https://youtu.be/dQw4w9WgXcQ","kind":"video","quality":"high"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if uc.called != 1 {
		t.Fatalf("usecase called %d times", uc.called)
	}
	if uc.req.Kind != domain.KindVideo || uc.req.Tier != domain.TierHigh {
		t.Errorf("request = %+v", uc.req)
	}
	if uc.req.SourceURL != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("SourceURL = %q", uc.req.SourceURL)
	}

	var resp downloadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "job-1" || resp.File != "Test_Video_1080p.mp4" || resp.Size != 2048 {
		t.Errorf("response = %+v", resp)
	}
	if resp.URL != "/files/Test_Video_1080p.mp4" {
		t.Errorf("URL = %q", resp.URL)
	}
	if resp.Info != nil {
		t.Errorf("Info should be omitted without probe data, got %+v", resp.Info)
	}
}

func TestDownloadDefaults(t *testing.T) {
	uc := &fakeDownload{result: usecase.RetrieveResult{ID: "job-2"}}
	server := NewServer(uc)
	defer server.Close()

	w := doJSON(t, server, http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if uc.req.Kind != domain.KindVideo {
		t.Errorf("default kind = %q, want video", uc.req.Kind)
	}
	if uc.req.Tier != domain.TierHigh {
		t.Errorf("default tier = %q, want high", uc.req.Tier)
	}
}

func TestDownloadInvalidJSON(t *testing.T) {
	uc := &fakeDownload{}
	server := NewServer(uc)
	defer server.Close()

	w := doJSON(t, server, http.MethodPost, "/api/download", `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if payload := decodeError(t, w); payload.Code != "invalid_input" {
		t.Errorf("code = %q", payload.Code)
	}
	if uc.called != 0 {
		t.Errorf("usecase should not run on bad json")
	}
}

func TestDownloadMethodNotAllowed(t *testing.T) {
	server := NewServer(&fakeDownload{})
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/download", "")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestDownloadErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid input", fmt.Errorf("%w: bad url", domain.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{"content unavailable", fmt.Errorf("%w: gone", domain.ErrContentUnavailable), http.StatusNotFound, "content_unavailable"},
		{"no format", fmt.Errorf("%w: video/high", domain.ErrNoFormatAvailable), http.StatusNotFound, "no_format_available"},
		{"tool missing", fmt.Errorf("%w: yt-dlp", domain.ErrToolMissing), http.StatusServiceUnavailable, "tool_missing"},
		{"timeout", fmt.Errorf("%w after 600s", domain.ErrExtractionTimeout), http.StatusGatewayTimeout, "extraction_timeout"},
		{"network fault", fmt.Errorf("%w: 403", domain.ErrNetworkFault), http.StatusBadGateway, "network_fault"},
		{"empty artifact", fmt.Errorf("%w: x.mp4", domain.ErrEmptyArtifact), http.StatusInternalServerError, "empty_artifact"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := NewServer(&fakeDownload{err: tc.err})
			defer server.Close()

			w := doJSON(t, server, http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc"}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			if payload := decodeError(t, w); payload.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", payload.Code, tc.wantCode)
			}
		})
	}
}

func TestDownloadRateLimited(t *testing.T) {
	uc := &fakeDownload{result: usecase.RetrieveResult{ID: "job-1"}}
	server := NewServer(uc, WithDownloadLimit(1, time.Minute))
	defer server.Close()

	if w := doJSON(t, server, http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc"}`); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	w := doJSON(t, server, http.MethodPost, "/api/download", `{"url":"https://youtu.be/abc"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d", w.Code)
	}
	if payload := decodeError(t, w); payload.Code != "rate_limited" {
		t.Errorf("code = %q", payload.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if uc.called != 1 {
		t.Errorf("usecase called %d times, want 1", uc.called)
	}
}

func TestFormatsSuccess(t *testing.T) {
	uc := &fakeFormats{result: usecase.FormatInventory{
		ContentID: "abc",
		Items: []domain.FormatDescriptor{
			{ID: "137", Quality: "1080p", Container: "mp4", Kind: domain.KindVideo},
			{ID: "140", Quality: "128k", Container: "m4a", Kind: domain.KindAudio},
		},
	}}
	server := NewServer(nil, WithFormats(uc))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/formats?url=https://youtu.be/abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp formatListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Items) != 2 || resp.ContentID != "abc" {
		t.Errorf("response = %+v", resp)
	}
	if uc.url != "https://youtu.be/abc" {
		t.Errorf("url = %q", uc.url)
	}
}

func TestFormatsEmptyInventoryNotNull(t *testing.T) {
	server := NewServer(nil, WithFormats(&fakeFormats{result: usecase.FormatInventory{ContentID: "abc"}}))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/formats?url=https://youtu.be/abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Errorf("empty inventory should marshal as [], body %s", w.Body.String())
	}
}

func TestFormatsMissingURL(t *testing.T) {
	server := NewServer(nil, WithFormats(&fakeFormats{}))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/formats", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestInfoSuccess(t *testing.T) {
	meta := &fakeMetadataAPI{info: ports.ContentInfo{ID: "abc", Title: "Test", ThumbnailURL: "https://img/abc.jpg"}}
	server := NewServer(nil, WithMetadata(meta, func(rawURL string) (string, error) { return "abc", nil }))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/info?url=https://youtu.be/abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var info ports.ContentInfo
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Title != "Test" || info.ID != "abc" {
		t.Errorf("info = %+v", info)
	}
	if meta.id != "abc" {
		t.Errorf("lookup id = %q", meta.id)
	}
}

func TestInfoBadURL(t *testing.T) {
	meta := &fakeMetadataAPI{}
	server := NewServer(nil, WithMetadata(meta, func(rawURL string) (string, error) {
		return "", fmt.Errorf("%w: unrecognized url", domain.ErrInvalidInput)
	}))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/info?url=https://example.com/x", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if meta.called != 0 {
		t.Error("metadata should not be queried for a bad url")
	}
}

func TestSubtitlesSuccess(t *testing.T) {
	uc := &fakeSubtitles{result: usecase.SubtitleResult{
		ContentID: "abc",
		FileName:  "abc_en.srt",
		Path:      "/subs/abc_en.srt",
		Format:    "srt",
	}}
	server := NewServer(nil, WithSubtitles(uc))
	defer server.Close()

	w := doJSON(t, server, http.MethodPost, "/api/subtitles", `{"url":"https://youtu.be/abc","lang":"en","format":"srt"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp subtitleResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.File != "abc_en.srt" || resp.URL != "/files/abc_en.srt" || resp.Format != "srt" {
		t.Errorf("response = %+v", resp)
	}
	if uc.lang != "en" || uc.format != "srt" {
		t.Errorf("usecase input: lang=%q format=%q", uc.lang, uc.format)
	}
}

func TestSubtitlesDefaultFormat(t *testing.T) {
	uc := &fakeSubtitles{result: usecase.SubtitleResult{FileName: "abc.srt", Format: "srt"}}
	server := NewServer(nil, WithSubtitles(uc))
	defer server.Close()

	if w := doJSON(t, server, http.MethodPost, "/api/subtitles", `{"url":"https://youtu.be/abc"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if uc.format != "srt" {
		t.Errorf("default format = %q, want srt", uc.format)
	}
}

func TestSubtitlesPerClientRateLimit(t *testing.T) {
	uc := &fakeSubtitles{result: usecase.SubtitleResult{FileName: "abc.srt"}}
	server := NewServer(nil, WithSubtitles(uc), WithSubtitleLimit(1, time.Minute))
	defer server.Close()

	send := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/subtitles", strings.NewReader(`{"url":"https://youtu.be/abc"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		return w
	}

	if w := send("10.0.0.1:43210"); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if w := send("10.0.0.1:43211"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("same client second request status = %d, want 429", w.Code)
	}
	if w := send("10.0.0.2:43210"); w.Code != http.StatusOK {
		t.Fatalf("different client status = %d, want 200", w.Code)
	}
	if uc.called != 2 {
		t.Errorf("usecase called %d times, want 2", uc.called)
	}
}

func TestConvertNotConfigured(t *testing.T) {
	server := NewServer(nil)
	defer server.Close()

	w := doJSON(t, server, http.MethodPost, "/api/convert", `{"url":"https://example.com/video"}`)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", w.Code)
	}
	if payload := decodeError(t, w); payload.Code != "not_configured" {
		t.Errorf("code = %q", payload.Code)
	}
}

func TestConvertDisabledUseCase(t *testing.T) {
	server := NewServer(nil, WithConvert(&fakeConvert{err: usecase.ErrConversionDisabled}))
	defer server.Close()

	w := doJSON(t, server, http.MethodPost, "/api/convert", `{"url":"https://example.com/video"}`)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestConvertSuccess(t *testing.T) {
	uc := &fakeConvert{result: convertapi.Result{Status: "redirect", URL: "https://cdn/x.mp4", Filename: "x.mp4"}}
	server := NewServer(nil, WithConvert(uc))
	defer server.Close()

	w := doJSON(t, server, http.MethodPost, "/api/convert", `{"url":"https://example.com/video"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp convertResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.URL != "https://cdn/x.mp4" || resp.Status != "redirect" {
		t.Errorf("response = %+v", resp)
	}
	if uc.url != "https://example.com/video" {
		t.Errorf("url = %q", uc.url)
	}
}

func TestHistoryDisabled(t *testing.T) {
	server := NewServer(nil)
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/history", "")
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d", w.Code)
	}
	if payload := decodeError(t, w); payload.Code != "not_configured" {
		t.Errorf("code = %q", payload.Code)
	}
}

func TestHistoryList(t *testing.T) {
	repo := &fakeHistoryRepo{records: []domain.DownloadRecord{
		{ID: "a", Title: "First", Status: domain.DownloadDone},
		{ID: "b", Title: "Second", Status: domain.DownloadFailed},
	}}
	server := NewServer(nil, WithHistory(repo))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/history?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp historyListResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 2 || len(resp.Items) != 2 {
		t.Errorf("response = %+v", resp)
	}
	if repo.lastLimit != 5 {
		t.Errorf("limit = %d, want 5", repo.lastLimit)
	}
}

func TestHistoryListDefaultLimit(t *testing.T) {
	repo := &fakeHistoryRepo{}
	server := NewServer(nil, WithHistory(repo))
	defer server.Close()

	if w := doJSON(t, server, http.MethodGet, "/api/history", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if repo.lastLimit != 20 {
		t.Errorf("default limit = %d, want 20", repo.lastLimit)
	}
}

func TestHistoryGetByID(t *testing.T) {
	repo := &fakeHistoryRepo{rec: domain.DownloadRecord{ID: "job-1", Title: "Test"}}
	server := NewServer(nil, WithHistory(repo))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/history/job-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if repo.lastID != "job-1" {
		t.Errorf("id = %q", repo.lastID)
	}
}

func TestHistoryGetMissing(t *testing.T) {
	repo := &fakeHistoryRepo{getErr: domain.ErrNotFound}
	server := NewServer(nil, WithHistory(repo))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/api/history/nope", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestHistoryDelete(t *testing.T) {
	repo := &fakeHistoryRepo{}
	server := NewServer(nil, WithHistory(repo))
	defer server.Close()

	w := doJSON(t, server, http.MethodDelete, "/api/history/job-1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "job-1" {
		t.Errorf("deleted = %v", repo.deleted)
	}
}

func TestHistoryDeleteMissing(t *testing.T) {
	repo := &fakeHistoryRepo{deleteErr: domain.ErrNotFound}
	server := NewServer(nil, WithHistory(repo))
	defer server.Close()

	if w := doJSON(t, server, http.MethodDelete, "/api/history/nope", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestFilesServesArtifact(t *testing.T) {
	mediaDir := t.TempDir()
	content := []byte("fake mp4 payload")
	if err := os.WriteFile(filepath.Join(mediaDir, "Test_Video_1080p.mp4"), content, 0o644); err != nil {
		t.Fatal(err)
	}
	server := NewServer(nil, WithFileDirs(mediaDir, ""))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/files/Test_Video_1080p.mp4", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q", got)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Errorf("body mismatch")
	}
}

func TestFilesFallsBackToSubtitleDir(t *testing.T) {
	mediaDir := t.TempDir()
	subDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(subDir, "abc_en.srt"), []byte("1\n00:00:01,000 --> 00:00:02,000\nHi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := NewServer(nil, WithFileDirs(mediaDir, subDir))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/files/abc_en.srt", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/x-subrip" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestFilesMissing(t *testing.T) {
	server := NewServer(nil, WithFileDirs(t.TempDir(), ""))
	defer server.Close()

	if w := doJSON(t, server, http.MethodGet, "/files/nope.mp4", ""); w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestFilesRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "cache")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	server := NewServer(nil, WithFileDirs(sub, ""))
	defer server.Close()

	// The handler is exercised directly; the mux would already redirect
	// dotted paths before they reach it.
	req := httptest.NewRequest(http.MethodGet, "/files/x", nil)
	req.URL.Path = "/files/../secret.txt"
	w := httptest.NewRecorder()
	server.handleFiles(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret") {
		t.Fatal("escaped the cache dir")
	}
}

func TestHealthzOK(t *testing.T) {
	server := NewServer(nil, WithToolStatus(func(ctx context.Context) []tools.Status {
		return []tools.Status{
			{Name: "yt-dlp", Available: true, Version: "2025.01.15"},
			{Name: "ffmpeg", Available: true},
		}
	}))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || len(resp.Tools) != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHealthzDegraded(t *testing.T) {
	server := NewServer(nil, WithToolStatus(func(ctx context.Context) []tools.Status {
		return []tools.Status{
			{Name: "yt-dlp", Available: false, Detail: `binary "yt-dlp" not found in PATH`},
			{Name: "ffprobe", Optional: true, Available: false},
		}
	}))
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestHealthzWithoutToolCheck(t *testing.T) {
	server := NewServer(nil)
	defer server.Close()

	w := doJSON(t, server, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestHistoryInternalError(t *testing.T) {
	repo := &fakeHistoryRepo{listErr: errors.New("mongo down")}
	server := NewServer(nil, WithHistory(repo))
	defer server.Close()

	if w := doJSON(t, server, http.MethodGet, "/api/history", ""); w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestServerImplementsPortsProgressSink(t *testing.T) {
	var _ ports.ProgressSink = (*Server)(nil)
}
