package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://en.wikipedia.org/api/rest_v1"
	defaultUserAgent   = "shortform/1.0"
	defaultHTTPTimeout = 15 * time.Second
)

// ErrSubjectNotFound is returned when the encyclopedia has no page for the
// requested topic.
var ErrSubjectNotFound = errors.New("research: subject not found")

// Client wraps the encyclopedia REST summary API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// ClientOption customizes the research client.
type ClientOption func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(agent string) ClientOption {
	return func(c *Client) {
		agent = strings.TrimSpace(agent)
		if agent != "" {
			c.userAgent = agent
		}
	}
}

// NewClient constructs a research API client.
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// PageSummary is the subset of the summary endpoint response the pipeline
// consumes.
type PageSummary struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Extract     string `json:"extract"`
}

// Summary fetches the page summary for a topic. Spaces in the topic are
// folded to underscores per the endpoint's title addressing.
func (c *Client) Summary(ctx context.Context, topic string) (PageSummary, error) {
	var empty PageSummary
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return empty, errors.New("research summary: topic required")
	}

	title := strings.ReplaceAll(topic, " ", "_")
	endpoint, err := url.JoinPath(c.baseURL, "/page/summary/", url.PathEscape(title))
	if err != nil {
		return empty, fmt.Errorf("research summary: build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return empty, fmt.Errorf("research summary: request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("research summary: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("research summary: read body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return empty, fmt.Errorf("%w: %s", ErrSubjectNotFound, topic)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("research summary: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var summary PageSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return empty, fmt.Errorf("research summary: decode response: %w", err)
	}
	if strings.TrimSpace(summary.Extract) == "" {
		return empty, fmt.Errorf("%w: %s has no extract", ErrSubjectNotFound, topic)
	}
	return summary, nil
}
