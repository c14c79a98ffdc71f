package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mediagate/internal/domain"
	"mediagate/internal/domain/ports"
)

const (
	defaultBaseURL = "https://www.youtube.com/oembed"
	watchBaseURL   = "https://www.youtube.com/watch?v="

	maxResponseBytes = 512 * 1024
)

// Client queries the source's public oEmbed endpoint for availability and
// title. The endpoint needs no API key and answers for exactly the content
// the player would serve.
type Client struct {
	baseURL string
	http    *http.Client
}

type Config struct {
	BaseURL string
	Client  *http.Client
}

func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.Client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Lookup resolves availability and title for a content id. Missing, removed
// or not-yet-processed content maps to domain.ErrContentUnavailable.
func (c *Client) Lookup(ctx context.Context, contentID string) (ports.ContentInfo, error) {
	params := url.Values{
		"url":    {watchBaseURL + contentID},
		"format": {"json"},
	}
	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return ports.ContentInfo{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.ContentInfo{}, fmt.Errorf("%w: metadata lookup: %v", domain.ErrNetworkFault, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return ports.ContentInfo{}, fmt.Errorf("%w: source returned HTTP %d for %s", domain.ErrContentUnavailable, resp.StatusCode, contentID)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ports.ContentInfo{}, fmt.Errorf("%w: metadata HTTP %d: %s", domain.ErrNetworkFault, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return ports.ContentInfo{}, fmt.Errorf("%w: read metadata: %v", domain.ErrNetworkFault, err)
	}

	var decoded oembedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ports.ContentInfo{}, fmt.Errorf("%w: decode metadata: %v", domain.ErrNetworkFault, err)
	}
	return ports.ContentInfo{
		ID:           contentID,
		Title:        decoded.Title,
		ThumbnailURL: decoded.ThumbnailURL,
	}, nil
}
