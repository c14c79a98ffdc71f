package convertapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediagate/internal/domain"
)

const (
	defaultTimeout   = 60 * time.Second
	maxResponseBytes = 256 << 10
)

// Config controls the conversion API client. An empty BaseURL leaves the
// client unconfigured and every Convert call fails fast.
type Config struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Client proxies conversion of links from platforms the extraction pipeline
// does not handle natively to an external all-in-one conversion service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Result is the upstream answer for a conversion request. Status is the
// service's own vocabulary; URL points at the converted artifact.
type Result struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type apiResponse struct {
	Status   string `json:"status"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Error    struct {
		Code string `json:"code"`
	} `json:"error"`
}

func NewClient(cfg Config) *Client {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  client,
	}
}

// Configured reports whether an upstream service is set.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

func (c *Client) Convert(ctx context.Context, sourceURL string) (Result, error) {
	if !c.Configured() {
		return Result{}, fmt.Errorf("%w: conversion service not configured", domain.ErrToolMissing)
	}

	payload, err := json.Marshal(map[string]string{"url": sourceURL})
	if err != nil {
		return Result{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Api-Key "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: conversion service unreachable: %v", domain.ErrNetworkFault, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read conversion response: %v", domain.ErrNetworkFault, err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return Result{}, fmt.Errorf("%w: conversion service returned status %d: %s", domain.ErrNetworkFault, resp.StatusCode, snippet)
	}

	if decoded.Status == "error" || resp.StatusCode != http.StatusOK {
		return Result{}, classifyCode(decoded.Error.Code, resp.StatusCode)
	}
	return Result{Status: decoded.Status, URL: decoded.URL, Filename: decoded.Filename}, nil
}

// classifyCode maps the service's error codes onto the retrieval taxonomy.
// Codes follow the "error.api.<area>.<detail>" convention.
func classifyCode(code string, statusCode int) error {
	lowered := strings.ToLower(code)
	switch {
	case strings.Contains(lowered, "link.invalid"), strings.Contains(lowered, "link.unsupported"):
		return fmt.Errorf("%w: conversion service rejected link (%s)", domain.ErrInvalidInput, code)
	case strings.Contains(lowered, "content"):
		return fmt.Errorf("%w: %s", domain.ErrContentUnavailable, code)
	case strings.Contains(lowered, "auth"), statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: conversion service refused credentials (%s)", domain.ErrNetworkFault, code)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: conversion service throttled request", domain.ErrRateLimited)
	case code == "":
		return fmt.Errorf("%w: conversion service returned status %d", domain.ErrNetworkFault, statusCode)
	default:
		return fmt.Errorf("%w: conversion service error %s", domain.ErrExtractionFailed, code)
	}
}
