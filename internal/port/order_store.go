package port

import (
	"context"

	"github.com/trannm/order-reservation/internal/core/domain"
)

type OrderStore interface {
	// Create persists a new order with its items. A conflicting concurrent
	// write (including an order-number collision) surfaces as
	// domain.ErrVersionConflict, distinct from infrastructure failures.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID returns the order with its items, or nil when it does not exist.
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)

	// UpdateStatus persists the order's current status with a version check;
	// a stale version surfaces as domain.ErrVersionConflict. On success the
	// order's version is advanced.
	UpdateStatus(ctx context.Context, order *domain.Order) error
}
