package shared

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a malformed filter, payload or stock value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstreamUnavailable indicates a network or timeout failure against
	// an upstream store.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInsufficientStock occurs when an order requests more units than
	// the transactional store holds.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition occurs on a disallowed order status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)
