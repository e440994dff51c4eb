// Package productapi is the HTTP/JSON client for the transactional product
// store consumed by the catalog merge layer.
package productapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/exotic-pets/exotic-pets/internal/catalog"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// Client talks to the transactional store REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client with a bounded per-call timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetProduct fetches a single record by identifier.
func (c *Client) GetProduct(ctx context.Context, id string) (catalog.ProductRecord, error) {
	var record catalog.ProductRecord
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(id)), nil, &record)
	if err != nil {
		return catalog.ProductRecord{}, err
	}
	return record, nil
}

// ListProducts fetches records matching the filter set. Filtering happens
// server-side; zero-valued filter dimensions are simply not sent.
func (c *Client) ListProducts(ctx context.Context, filters catalog.Filters) ([]catalog.ProductRecord, error) {
	query := url.Values{}
	setIf := func(key, value string) {
		if value != "" {
			query.Set(key, value)
		}
	}
	setIf("category", filters.Category)
	setIf("search", filters.Search)
	setIf("difficulty", filters.Difficulty)
	setIf("size", filters.Size)
	setIf("color", filters.Color)
	if filters.Featured != nil {
		query.Set("featured", strconv.FormatBool(*filters.Featured))
	}
	if filters.InStock != nil {
		query.Set("inStock", strconv.FormatBool(*filters.InStock))
	}
	if filters.MinPrice != nil {
		query.Set("minPrice", strconv.FormatFloat(*filters.MinPrice, 'f', -1, 64))
	}
	if filters.MaxPrice != nil {
		query.Set("maxPrice", strconv.FormatFloat(*filters.MaxPrice, 'f', -1, 64))
	}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Skip > 0 {
		query.Set("skip", strconv.Itoa(filters.Skip))
	}

	endpoint := c.baseURL + "/products"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var records []catalog.ProductRecord
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateStock writes a new stock quantity through to the store.
func (c *Client) UpdateStock(ctx context.Context, id string, stock int) (catalog.StockUpdate, error) {
	body, err := json.Marshal(map[string]int{"stock": stock})
	if err != nil {
		return catalog.StockUpdate{}, err
	}

	var result catalog.StockUpdate
	endpoint := fmt.Sprintf("%s/products/%s/stock", c.baseURL, url.PathEscape(id))
	if err := c.doJSON(ctx, http.MethodPut, endpoint, body, &result); err != nil {
		return catalog.StockUpdate{}, err
	}
	return result, nil
}

// AdjustStock applies a relative stock change. The store enforces the
// insufficient-stock guard atomically and reports it as a conflict.
func (c *Client) AdjustStock(ctx context.Context, id string, delta int) (catalog.StockUpdate, error) {
	body, err := json.Marshal(map[string]int{"delta": delta})
	if err != nil {
		return catalog.StockUpdate{}, err
	}

	var result catalog.StockUpdate
	endpoint := fmt.Sprintf("%s/products/%s/stock/adjust", c.baseURL, url.PathEscape(id))
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &result); err != nil {
		return catalog.StockUpdate{}, err
	}
	return result, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, dest any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("productapi: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("productapi: %s %s: %v: %w", method, endpoint, err, shared.ErrUpstreamUnavailable)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("productapi: %s: %w", endpoint, shared.ErrNotFound)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("productapi: %s rejected request: %w", endpoint, shared.ErrInvalidInput)
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("productapi: %s: %w", endpoint, shared.ErrInsufficientStock)
	case resp.StatusCode >= 400:
		return fmt.Errorf("productapi: %s returned status %d: %w", endpoint, resp.StatusCode, shared.ErrUpstreamUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("productapi: decode response: %w", err)
	}
	return nil
}
