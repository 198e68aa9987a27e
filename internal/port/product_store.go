package port

import (
	"context"

	"github.com/trannm/order-reservation/internal/core/domain"
)

type ProductStore interface {
	// GetProduct returns the product, or nil when it does not exist.
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)

	// ReserveStock decrements stock by quantity only if current stock covers
	// it, as one indivisible storage operation. It returns the number of rows
	// affected (0 or 1); 0 means the condition did not hold.
	ReserveStock(ctx context.Context, productID string, quantity int) (int64, error)

	// RestoreStock unconditionally increments stock by quantity. Calling it
	// at most once per reservation is the caller's responsibility.
	RestoreStock(ctx context.Context, productID string, quantity int) error
}
