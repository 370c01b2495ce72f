package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://api.pexels.com"
	defaultHTTPTimeout = 20 * time.Second
)

// Photo is one search result from the image provider.
type Photo struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	Photographer string `json:"photographer"`
	Src          struct {
		Large string `json:"large"`
	} `json:"src"`
}

type searchResponse struct {
	Photos []Photo `json:"photos"`
}

// Client wraps the stock image search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// ClientOption customizes the image client.
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

// NewClient constructs an image search client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Search returns up to perPage photos matching the query.
func (c *Client) Search(ctx context.Context, query string, perPage int) ([]Photo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("asset search: query required")
	}
	if c.apiKey == "" {
		return nil, errors.New("asset search: api key required")
	}

	endpoint, err := url.JoinPath(c.baseURL, "/v1/search")
	if err != nil {
		return nil, fmt.Errorf("asset search: build url: %w", err)
	}
	values := url.Values{}
	values.Set("query", query)
	values.Set("per_page", strconv.Itoa(perPage))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("asset search: request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("asset search: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("asset search: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("asset search: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded searchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("asset search: decode response: %w", err)
	}
	return decoded.Photos, nil
}

// Download fetches the photo's large rendition into destDir and returns the
// local path.
func (c *Client) Download(ctx context.Context, photo Photo, destDir string) (string, error) {
	if photo.Src.Large == "" {
		return "", errors.New("asset download: photo has no large rendition")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photo.Src.Large, nil)
	if err != nil {
		return "", fmt.Errorf("asset download: request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("asset download: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("asset download: http %d", resp.StatusCode)
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("asset download: create directory: %w", err)
	}
	path := filepath.Join(destDir, fmt.Sprintf("asset-%d.jpg", photo.ID))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("asset download: create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("asset download: write file: %w", err)
	}
	return path, nil
}
