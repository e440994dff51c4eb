// Package products implements the transactional product store service: the
// authoritative source for price, stock and identity.
package products

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the authoritative product document.
type Product struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ContentfulID    string             `json:"contentfulId" bson:"contentfulId"`
	Name            string             `json:"name" bson:"name"`
	Category        string             `json:"category" bson:"category"`
	Price           float64            `json:"price" bson:"price"`
	OriginalPrice   float64            `json:"originalPrice,omitempty" bson:"originalPrice,omitempty"`
	Stock           int                `json:"stock" bson:"stock"`
	InStock         bool               `json:"inStock" bson:"inStock"`
	SKU             string             `json:"sku" bson:"sku"`
	Rating          float64            `json:"rating" bson:"rating"`
	ReviewCount     int                `json:"reviewCount" bson:"reviewCount"`
	TotalSales      int                `json:"totalSales" bson:"totalSales"`
	ViewCount       int                `json:"viewCount" bson:"viewCount"`
	Featured        bool               `json:"featured" bson:"featured"`
	Active          bool               `json:"active" bson:"active"`
	Difficulty      string             `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
	Size            string             `json:"size,omitempty" bson:"size,omitempty"`
	Color           string             `json:"color,omitempty" bson:"color,omitempty"`
	Tags            []string           `json:"tags,omitempty" bson:"tags,omitempty"`
	SearchKeywords  []string           `json:"searchKeywords,omitempty" bson:"searchKeywords,omitempty"`
	Supplier        Supplier           `json:"supplier" bson:"supplier"`
	LastStockUpdate time.Time          `json:"lastStockUpdate,omitempty" bson:"lastStockUpdate,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Supplier carries supplier metadata.
type Supplier struct {
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
	Contact string `json:"contact,omitempty" bson:"contact,omitempty"`
}

// Query describes a product list request. Zero values mean "no filter".
// Inactive products are excluded unless IncludeInactive is set.
type Query struct {
	Category        string
	Featured        *bool
	InStock         *bool
	Search          string
	MinPrice        *float64
	MaxPrice        *float64
	Difficulty      string
	Size            string
	Color           string
	Limit           int
	Skip            int
	IncludeInactive bool
}

// StockResult is the response of a stock update.
type StockResult struct {
	Success      bool   `json:"success"`
	ContentfulID string `json:"contentfulId"`
	NewStock     int    `json:"newStock"`
	InStock      bool   `json:"inStock"`
}

// CategoryStats aggregates one category.
type CategoryStats struct {
	Category   string  `json:"category" bson:"_id"`
	Count      int     `json:"count" bson:"count"`
	TotalStock int     `json:"totalStock" bson:"totalStock"`
	AvgPrice   float64 `json:"avgPrice" bson:"avgPrice"`
	TotalSales int     `json:"totalSales" bson:"totalSales"`
}

// Totals aggregates the whole active catalog.
type Totals struct {
	TotalProducts int     `json:"totalProducts" bson:"totalProducts"`
	TotalStock    int     `json:"totalStock" bson:"totalStock"`
	TotalValue    float64 `json:"totalValue" bson:"totalValue"`
	TotalSales    int     `json:"totalSales" bson:"totalSales"`
}

// Stats is the aggregate-statistics payload.
type Stats struct {
	ByCategory []CategoryStats `json:"byCategory"`
	Totals     Totals          `json:"totals"`
}
