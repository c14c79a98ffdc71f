package subtitle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"mediagate/internal/domain"
)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultMaxBytes     = 2 << 20
)

// Fetcher retrieves caption track payloads over HTTP with a hard size cap.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

type FetcherOption func(*Fetcher)

func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

func WithMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: defaultFetchTimeout},
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads one subtitle document and normalizes it to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: subtitle fetch: %s", domain.ErrNetworkFault, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w: subtitle fetch status %d", domain.ErrContentUnavailable, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: subtitle fetch status %d", domain.ErrNetworkFault, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: subtitle read: %s", domain.ErrNetworkFault, err)
	}
	if int64(len(payload)) > f.maxBytes {
		return "", fmt.Errorf("%w: subtitle payload exceeds %d bytes", domain.ErrInvalidInput, f.maxBytes)
	}
	return DecodeToUTF8(payload), nil
}
