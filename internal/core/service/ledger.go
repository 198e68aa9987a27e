package service

import (
	"context"
	"fmt"

	"github.com/trannm/order-reservation/internal/core/domain"
	"github.com/trannm/order-reservation/internal/port"
)

// StockLedger is the single writer-of-record for product stock counters.
// Reservation and restoration both go through it; nothing else mutates stock.
type StockLedger struct {
	products port.ProductStore
}

func NewStockLedger(products port.ProductStore) *StockLedger {
	return &StockLedger{products: products}
}

// Reserve decrements stock for a product through one conditional write. When
// the write affects no rows, current stock is re-read only to report accurate
// numbers; the re-read never mutates state.
func (l *StockLedger) Reserve(ctx context.Context, productID string, quantity int) error {
	rows, err := l.products.ReserveStock(ctx, productID, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}
	if rows > 0 {
		return nil
	}

	product, err := l.products.GetProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("read stock after failed reserve: %w", err)
	}
	if product == nil {
		return &domain.ProductNotFoundError{ProductID: productID}
	}
	return &domain.InsufficientStockError{
		ProductID: productID,
		Available: product.Stock,
		Requested: quantity,
	}
}

// Restore puts quantity back on the product counter.
func (l *StockLedger) Restore(ctx context.Context, productID string, quantity int) error {
	if err := l.products.RestoreStock(ctx, productID, quantity); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}
