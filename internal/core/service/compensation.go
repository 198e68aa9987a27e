package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/trannm/order-reservation/internal/core/domain"
)

// CompensationManager reverses stock reservations after a cancellation or a
// failed creation attempt. Restores are best-effort: per-item failures are
// logged and skipped so one broken product record cannot leave an order
// permanently un-cancellable.
type CompensationManager struct {
	ledger *StockLedger
	logger zerolog.Logger
}

func NewCompensationManager(ledger *StockLedger, logger zerolog.Logger) *CompensationManager {
	return &CompensationManager{ledger: ledger, logger: logger}
}

// RestoreOrder returns every item of a cancelled order back to stock.
func (m *CompensationManager) RestoreOrder(ctx context.Context, order *domain.Order) {
	for _, item := range order.Items {
		if err := m.ledger.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			m.logger.Error().Err(err).
				Str("order_id", order.ID).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("stock restore failed, continuing with remaining items")
		}
	}
}

// RestoreItems unwinds a partially reserved request in reverse order.
func (m *CompensationManager) RestoreItems(ctx context.Context, items []ItemRequest) {
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if err := m.ledger.Restore(ctx, item.ProductID, item.Quantity); err != nil {
			m.logger.Error().Err(err).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("stock restore failed, continuing with remaining items")
		}
	}
}
