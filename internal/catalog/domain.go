// Package catalog merges the transactional product store with the editorial
// content store into a single presentation-ready product view.
package catalog

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// ProductRecord is the authoritative product entity owned by the
// transactional store. The catalog never mutates it except through the
// explicit stock-update passthrough.
type ProductRecord struct {
	ID            string    `json:"id"`
	ContentfulID  string    `json:"contentfulId"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"originalPrice,omitempty"`
	Stock         int       `json:"stock"`
	InStock       bool      `json:"inStock"`
	SKU           string    `json:"sku"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	TotalSales    int       `json:"totalSales"`
	Featured      bool      `json:"featured"`
	Difficulty    string    `json:"difficulty,omitempty"`
	Size          string    `json:"size,omitempty"`
	Color         string    `json:"color,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Supplier      Supplier  `json:"supplier"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Supplier carries supplier metadata from the transactional store.
type Supplier struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// ImageAsset is an editorial image reference with a normalized URL.
type ImageAsset struct {
	URL   string `json:"url"`
	Alt   string `json:"alt,omitempty"`
	Title string `json:"title,omitempty"`
}

// EditorialRecord holds the descriptive fields sourced from the content
// store. Read-only from the catalog's perspective.
type EditorialRecord struct {
	ContentfulID      string      `json:"contentfulId,omitempty"`
	Name              string      `json:"name,omitempty"`
	Description       string      `json:"description,omitempty"`
	Badge             string      `json:"badge,omitempty"`
	BadgeColor        string      `json:"badgeColor,omitempty"`
	Features          []string    `json:"features,omitempty"`
	Images            *ImageAsset `json:"images,omitempty"`
	CareInstructions  string      `json:"careInstructions,omitempty"`
	ProductHighlights string      `json:"productHighlights,omitempty"`
}

// Enrichment is the editorial overlay of a merged product. A nil Enrichment
// means the editorial store had no match or was unavailable; callers must
// treat every field as optional.
type Enrichment struct {
	Description       string      `json:"description,omitempty"`
	Badge             string      `json:"badge,omitempty"`
	BadgeColor        string      `json:"badgeColor,omitempty"`
	Features          []string    `json:"features,omitempty"`
	Images            *ImageAsset `json:"images,omitempty"`
	CareInstructions  string      `json:"careInstructions,omitempty"`
	ProductHighlights string      `json:"productHighlights,omitempty"`
}

// MergedProduct combines both sources. Transactional fields are always
// present and authoritative; the editorial overlay is optional.
type MergedProduct struct {
	ProductRecord
	Enrichment *Enrichment `json:"enrichment,omitempty"`
}

// StockUpdate is the result of a stock-update passthrough.
type StockUpdate struct {
	Success      bool   `json:"success"`
	ContentfulID string `json:"contentfulId"`
	NewStock     int    `json:"newStock"`
	InStock      bool   `json:"inStock"`
}

// Filters describes a product list query. Zero values mean "no filtering for
// that dimension"; server-side filtering is delegated to the transactional
// store.
type Filters struct {
	Category   string
	Featured   *bool
	InStock    *bool
	Search     string
	MinPrice   *float64
	MaxPrice   *float64
	Difficulty string
	Size       string
	Color      string
	Limit      int
	Skip       int
}

// DefaultListLimit bounds list queries when no limit is supplied.
const DefaultListLimit = 50

// Signature returns a deterministic cache key for the filter set.
func (f Filters) Signature() string {
	var b strings.Builder
	b.WriteString("products")
	appendPart := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteByte('|')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
	}
	appendPart("category", f.Category)
	if f.Featured != nil {
		appendPart("featured", strconv.FormatBool(*f.Featured))
	}
	if f.InStock != nil {
		appendPart("inStock", strconv.FormatBool(*f.InStock))
	}
	appendPart("search", f.Search)
	if f.MinPrice != nil {
		appendPart("minPrice", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		appendPart("maxPrice", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	appendPart("difficulty", f.Difficulty)
	appendPart("size", f.Size)
	appendPart("color", f.Color)
	if f.Limit > 0 {
		appendPart("limit", strconv.Itoa(f.Limit))
	}
	if f.Skip > 0 {
		appendPart("skip", strconv.Itoa(f.Skip))
	}
	return b.String()
}

// ProductStore abstracts the transactional store consumed over HTTP/JSON.
type ProductStore interface {
	GetProduct(ctx context.Context, id string) (ProductRecord, error)
	ListProducts(ctx context.Context, filters Filters) ([]ProductRecord, error)
	UpdateStock(ctx context.Context, id string, stock int) (StockUpdate, error)
	AdjustStock(ctx context.Context, id string, delta int) (StockUpdate, error)
}

// EditorialStore abstracts the headless content store. Both lookups return
// shared.ErrNotFound when no entry matches.
type EditorialStore interface {
	GetEntry(ctx context.Context, key string) (*EditorialRecord, error)
	FindByName(ctx context.Context, name string) (*EditorialRecord, error)
}
