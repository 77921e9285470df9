package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client provides HTTP client functionality to talk to the document API.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger // optional logger for client operations
}

// DefaultConfig returns default client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8000",
		Timeout: 10 * time.Second,
	}
}

// New creates a new document API client.
func New(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		logger:  config.Logger,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

// Ping checks the API's health endpoint and returns an error when the API
// (or its search backend) is not serving.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint status %d", resp.StatusCode)
	}
	return nil
}

// Store writes a document and returns the engine-assigned document id.
func (c *Client) Store(ctx context.Context, text, auid string, extra map[string]any) (string, error) {
	c.logger.Debug("storing document", "auid", auid)
	q := url.Values{}
	q.Set("text", text)
	q.Set("auid", auid)
	if len(extra) > 0 {
		b, err := json.Marshal(extra)
		if err != nil {
			return "", fmt.Errorf("marshal additional args: %w", err)
		}
		q.Set("additional_args", string(b))
	}
	var out StoreResponse
	if err := c.getJSON(ctx, "/storedata?"+q.Encode(), &out); err != nil {
		return "", err
	}
	if out.Status != "success" {
		return "", fmt.Errorf("store returned status %q", out.Status)
	}
	return out.DocumentID, nil
}

// Get retrieves every document stored under auid, newest first.
func (c *Client) Get(ctx context.Context, auid string) (GetResponse, error) {
	c.logger.Debug("retrieving documents", "auid", auid)
	q := url.Values{}
	q.Set("auid", auid)
	var out GetResponse
	if err := c.getJSON(ctx, "/getdata?"+q.Encode(), &out); err != nil {
		return GetResponse{}, err
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request failed", "error", err, "path", path)
		return fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return fmt.Errorf("API error: %s", errResp.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
