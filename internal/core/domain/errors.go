package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict signals a concurrent modification detected by a
	// store. The operation may be retried against fresh state.
	ErrVersionConflict = errors.New("version conflict")

	// ErrConflictExhausted means order creation ran out of retries under
	// contention. Callers should try again later.
	ErrConflictExhausted = errors.New("concurrency conflict: retries exhausted")

	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateRequest = errors.New("duplicate request")
)

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid order request: " + e.Reason
}

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order status transition: %s -> %s", e.From, e.To)
}
