package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client fetches the product catalog from the store API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new catalog client
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// Product is a single catalog entry
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
}

// Page is one page of catalog results with the total count across all pages
type Page struct {
	Count   int       `json:"count"`
	Results []Product `json:"results"`
}

// TotalPages returns how many pages exist for the given page size
func (p *Page) TotalPages(limit int) int {
	if limit <= 0 {
		return 0
	}
	return (p.Count + limit - 1) / limit
}

// List fetches one page of products. Pages are 1-based.
func (c *Client) List(ctx context.Context, limit, page int) (*Page, error) {
	url := fmt.Sprintf("%s/store/products/?limit=%d&page=%d", c.baseURL, limit, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list products (status %d)", resp.StatusCode)
	}

	var out Page
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode products response: %w", err)
	}

	return &out, nil
}
