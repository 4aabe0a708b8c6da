// Package index is the thin HTTP adapter over the external search engine.
// It does not retry: transport failures surface to callers, which decide
// whether to log and continue (sync paths) or report (query paths).
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lumenpress/searchsync/internal/domain"
)

// DefaultTimeout bounds every engine call.
const DefaultTimeout = 5 * time.Second

// Config holds engine connection settings.
type Config struct {
	// URL is the engine base URL, e.g. http://127.0.0.1:7700.
	URL string
	// APIKey is the bearer credential, supplied out of band.
	APIKey string
	// IndexUID is the shared content index, e.g. "content".
	IndexUID string
	// Timeout bounds each request; 0 means DefaultTimeout.
	Timeout time.Duration
}

// Client talks to the external search engine. Safe for concurrent use.
type Client struct {
	baseURL  string
	apiKey   string
	indexUID string
	http     *http.Client
}

// New validates the configuration and creates a Client. Missing URL or
// index UID is a ConfigError: fatal at startup, not recoverable mid-run.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: engine url is required", domain.ErrConfig)
	}
	if cfg.IndexUID == "" {
		return nil, fmt.Errorf("%w: engine index uid is required", domain.ErrConfig)
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("%w: invalid engine url: %v", domain.ErrConfig, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		indexUID: cfg.IndexUID,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Upsert replaces one document whole. Never a partial write.
func (c *Client) Upsert(ctx context.Context, doc domain.Document) error {
	return c.BulkUpsert(ctx, []domain.Document{doc})
}

// BulkUpsert replaces a batch of documents in one engine call.
func (c *Client) BulkUpsert(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}
	path := fmt.Sprintf("/indexes/%s/documents", c.indexUID)
	return c.do(ctx, http.MethodPost, path, docs, nil)
}

// Delete removes one document by composite id. Deleting a missing document
// is not an error.
func (c *Client) Delete(ctx context.Context, id string) error {
	path := fmt.Sprintf("/indexes/%s/documents/%s", c.indexUID, url.PathEscape(id))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// Search runs a query against the content index.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	path := fmt.Sprintf("/indexes/%s/search", c.indexUID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return SearchResponse{}, err
	}
	return resp, nil
}

// Configure pushes the index schema. Idempotent; may run standalone
// before population.
func (c *Client) Configure(ctx context.Context, settings Settings) error {
	path := fmt.Sprintf("/indexes/%s/settings", c.indexUID)
	return c.do(ctx, http.MethodPatch, path, settings, nil)
}

// Stats reports document count and indexing state.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	path := fmt.Sprintf("/indexes/%s/stats", c.indexUID)
	if err := c.do(ctx, http.MethodGet, path, nil, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// Health pings the engine. Any failure means unreachable.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	return nil
}

// engineError is the engine's JSON error payload.
type engineError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// do executes one engine request. Every failure wraps domain.ErrTransport
// so callers can classify without inspecting HTTP details.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var engErr engineError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &engErr)
		msg := engErr.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return fmt.Errorf("%w: %s %s: status %d: %s",
			domain.ErrTransport, method, path, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrTransport, err)
		}
	}
	return nil
}
