package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Document is one stored record in the documentation index.
type Document struct {
	Text           string         `json:"text"`
	AUID           string         `json:"auid"`
	AdditionalArgs map[string]any `json:"additional_args,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// Hit is a search match: the document plus its engine-assigned id.
type Hit struct {
	ID     string
	Source Document
}

// Client talks to an Elasticsearch/OpenSearch-compatible engine over HTTP.
// It covers exactly what the document API needs: index management, single
// document writes, and term lookups by auid.
type Client struct {
	client  *http.Client
	baseURL string
	index   string
}

func New(baseURL, index string) *Client {
	c := &http.Client{Timeout: 10 * time.Second}
	return &Client{client: c, baseURL: strings.TrimRight(baseURL, "/"), index: index}
}

// Ping checks that the engine answers on its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("search engine status %d", resp.StatusCode)
	}
	return nil
}

// EnsureIndex creates the index with its mapping unless it already exists.
func (c *Client) EnsureIndex(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/"+c.index, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"text":            map[string]any{"type": "text"},
				"auid":            map[string]any{"type": "keyword"},
				"additional_args": map[string]any{"type": "object"},
				"timestamp":       map[string]any{"type": "date"},
			},
		},
	}
	b, _ := json.Marshal(mapping)
	req, err = http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/"+c.index, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err = c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("create index %s: status %d", c.index, resp.StatusCode)
	}
	return nil
}

// Index stores one document and returns the engine-assigned id. The write
// requests refresh=wait_for so a read issued right after the call sees the
// document; the round-trip probes depend on that.
func (c *Client) Index(ctx context.Context, doc Document) (string, error) {
	u := fmt.Sprintf("%s/%s/_doc?refresh=wait_for", c.baseURL, c.index)
	b, _ := json.Marshal(doc)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("index document: status %d", resp.StatusCode)
	}
	var out struct {
		ID string `json:"_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode index response: %w", err)
	}
	return out.ID, nil
}

// SearchByAUID returns every document with the exact auid, newest first.
func (c *Client) SearchByAUID(ctx context.Context, auid string) ([]Hit, error) {
	query := map[string]any{
		"query": map[string]any{
			"term": map[string]any{"auid": auid},
		},
		"sort": []any{
			map[string]any{"timestamp": map[string]any{"order": "desc"}},
		},
	}
	b, _ := json.Marshal(query)
	u := fmt.Sprintf("%s/%s/_search", c.baseURL, c.index)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search: status %d", resp.StatusCode)
	}
	var out struct {
		Hits struct {
			Hits []struct {
				ID     string   `json:"_id"`
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	hits := make([]Hit, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		hits = append(hits, Hit{ID: h.ID, Source: h.Source})
	}
	return hits, nil
}
