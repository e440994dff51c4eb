// Package orders implements customer order intake and fulfilment tracking on
// top of the merged catalog.
package orders

import (
	"time"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions holds the allowed forward moves per state. Cancellation is
// handled separately because it is allowed from several states.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed},
	StatusConfirmed:  {StatusProcessing},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

// CanTransition reports whether moving from one status to the next is legal.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return from == StatusPending || from == StatusConfirmed || from == StatusProcessing
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether value names a known status.
func ValidStatus(value Status) bool {
	switch value {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is a customer order. Prices are captured from the transactional
// store at creation time and never recomputed afterwards.
type Order struct {
	ID            string      `json:"id"`
	Number        string      `json:"number"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	ShippingCity  string      `json:"shippingCity"`
	ShippingLine  string      `json:"shippingLine"`
	Status        Status      `json:"status"`
	Currency      string      `json:"currency"`
	Subtotal      float64     `json:"subtotal"`
	Total         float64     `json:"total"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// OrderItem is one product line of an order.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     string  `json:"orderId"`
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	LineTotal   float64 `json:"lineTotal"`
}

// CreateOrderRequest is the order intake payload.
type CreateOrderRequest struct {
	CustomerName  string              `json:"customerName" validate:"required"`
	CustomerEmail string              `json:"customerEmail" validate:"required,email"`
	ShippingCity  string              `json:"shippingCity" validate:"required"`
	ShippingLine  string              `json:"shippingLine" validate:"required"`
	Items         []CreateOrderItem   `json:"items" validate:"required,min=1,dive"`
}

// CreateOrderItem references a product by its contentful id.
type CreateOrderItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Status *Status
	Email  string
	Limit  int
	Offset int
}
