// Package editorial is the client for the headless content store that
// supplies descriptive product fields (Contentful delivery API contract).
package editorial

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/exotic-pets/exotic-pets/internal/catalog"
	"github.com/exotic-pets/exotic-pets/internal/shared"
)

// Config groups the delivery API coordinates.
type Config struct {
	BaseURL     string
	SpaceID     string
	Environment string
	AccessToken string
	ContentType string
	Timeout     time.Duration
}

// Client reads editorial entries over HTTP. All lookups are read-only.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient constructs the editorial client.
func NewClient(cfg Config) *Client {
	if cfg.Environment == "" {
		cfg.Environment = "master"
	}
	if cfg.ContentType == "" {
		cfg.ContentType = "productCard"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// entry mirrors the delivery API payload for a single entry.
type entry struct {
	Fields entryFields `json:"fields"`
}

type entryFields struct {
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Badge             string     `json:"badge"`
	BadgeColor        string     `json:"badgeColor"`
	Features          []string   `json:"features"`
	Imagen            *assetLink `json:"imagen"`
	CareInstructions  string     `json:"careInstructions"`
	ProductHighlights string     `json:"productHighlights"`
}

type assetLink struct {
	Fields struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		File        struct {
			URL string `json:"url"`
		} `json:"file"`
	} `json:"fields"`
}

type entryCollection struct {
	Total int     `json:"total"`
	Items []entry `json:"items"`
}

// GetEntry fetches the editorial record stored under the cross-store key.
func (c *Client) GetEntry(ctx context.Context, key string) (*catalog.EditorialRecord, error) {
	if key == "" {
		return nil, shared.ErrNotFound
	}
	endpoint := fmt.Sprintf("%s/spaces/%s/environments/%s/entries/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.SpaceID), url.PathEscape(c.cfg.Environment),
		url.PathEscape(key))

	var result entry
	if err := c.doJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	record := recordFromFields(key, result.Fields)
	return &record, nil
}

// FindByName queries for the single entry whose name field matches exactly.
// When multiple entries share a name the store's first match wins.
func (c *Client) FindByName(ctx context.Context, name string) (*catalog.EditorialRecord, error) {
	if name == "" {
		return nil, shared.ErrNotFound
	}
	query := url.Values{}
	query.Set("content_type", c.cfg.ContentType)
	query.Set("fields.name", name)
	query.Set("limit", "1")
	endpoint := fmt.Sprintf("%s/spaces/%s/environments/%s/entries?%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.SpaceID), url.PathEscape(c.cfg.Environment), query.Encode())

	var collection entryCollection
	if err := c.doJSON(ctx, endpoint, &collection); err != nil {
		return nil, err
	}
	if len(collection.Items) == 0 {
		return nil, shared.ErrNotFound
	}
	record := recordFromFields("", collection.Items[0].Fields)
	return &record, nil
}

func (c *Client) doJSON(ctx context.Context, endpoint string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("editorial: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("editorial: %s: %v: %w", endpoint, err, shared.ErrUpstreamUnavailable)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return shared.ErrNotFound
	case resp.StatusCode >= 400:
		return fmt.Errorf("editorial: status %d: %w", resp.StatusCode, shared.ErrUpstreamUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("editorial: decode response: %w", err)
	}
	return nil
}

func recordFromFields(key string, fields entryFields) catalog.EditorialRecord {
	return catalog.EditorialRecord{
		ContentfulID:      key,
		Name:              fields.Name,
		Description:       fields.Description,
		Badge:             fields.Badge,
		BadgeColor:        fields.BadgeColor,
		Features:          fields.Features,
		Images:            processImage(fields.Imagen),
		CareInstructions:  fields.CareInstructions,
		ProductHighlights: fields.ProductHighlights,
	}
}

// processImage normalizes protocol-relative asset URLs to https.
func processImage(asset *assetLink) *catalog.ImageAsset {
	if asset == nil || asset.Fields.File.URL == "" {
		return nil
	}
	assetURL := asset.Fields.File.URL
	if strings.HasPrefix(assetURL, "//") {
		assetURL = "https:" + assetURL
	}
	return &catalog.ImageAsset{
		URL:   assetURL,
		Alt:   asset.Fields.Description,
		Title: asset.Fields.Title,
	}
}
