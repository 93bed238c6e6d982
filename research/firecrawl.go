// Package research wraps the Firecrawl and Perplexity APIs used for product
// research, with a goquery fallback scraper and the regex heuristics that
// turn scraped pages into structured hints.
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Errors returned by the clients.
var (
	ErrNoContent  = errors.New("no content returned")
	ErrMissingKey = errors.New("api key not configured")
)

// Page is a scraped page rendered as markdown.
type Page struct {
	URL      string         `json:"url"`
	Title    string         `json:"title"`
	Markdown string         `json:"markdown"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Scraper fetches a page as markdown.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// DefaultFirecrawlURL is the public Firecrawl API.
const DefaultFirecrawlURL = "https://api.firecrawl.dev"

// HTTPStatusError is a non-2xx reply from an upstream API.
type HTTPStatusError struct {
	Status int
	Body   string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// ClientOption configures the API clients.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL string
	client  *http.Client
}

// WithBaseURL points a client at another endpoint, such as a test server.
func WithBaseURL(u string) ClientOption {
	return func(c *clientConfig) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) { c.client = client }
}

func newClientConfig(baseURL string, opts []ClientOption) clientConfig {
	cfg := clientConfig{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// FirecrawlClient calls the Firecrawl scrape endpoint.
type FirecrawlClient struct {
	apiKey string
	cfg    clientConfig
}

// NewFirecrawlClient creates a Firecrawl client.
func NewFirecrawlClient(apiKey string, opts ...ClientOption) *FirecrawlClient {
	return &FirecrawlClient{
		apiKey: apiKey,
		cfg:    newClientConfig(DefaultFirecrawlURL, opts),
	}
}

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	Timeout         int      `json:"timeout"`
}

type firecrawlResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string         `json:"markdown"`
		Metadata map[string]any `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches url through Firecrawl as markdown, main content only.
func (f *FirecrawlClient) Scrape(ctx context.Context, url string) (*Page, error) {
	if f.apiKey == "" {
		return nil, ErrMissingKey
	}

	var resp firecrawlResponse
	err := postJSON(ctx, f.cfg, "/v1/scrape", f.apiKey, firecrawlRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
		Timeout:         30000,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape %s: %w", url, err)
	}
	if !resp.Success || resp.Data.Markdown == "" {
		return nil, fmt.Errorf("failed to scrape %s: %w", url, ErrNoContent)
	}

	page := &Page{
		URL:      url,
		Markdown: resp.Data.Markdown,
		Metadata: resp.Data.Metadata,
	}
	if title, ok := resp.Data.Metadata["title"].(string); ok {
		page.Title = title
	}
	return page, nil
}

// postJSON sends body to cfg.baseURL+path with a bearer token and decodes
// the reply into out.
func postJSON(ctx context.Context, cfg clientConfig, path, apiKey string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := cfg.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPStatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
