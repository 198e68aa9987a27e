package service

import "context"

// ItemRequest is one (product, quantity) line of an incoming order request.
// Duplicate product IDs are reserved independently, not merged.
type ItemRequest struct {
	ProductID string
	Quantity  int
}

// ReservationEngine reserves stock for a whole order request, item by item.
type ReservationEngine struct {
	ledger *StockLedger
}

func NewReservationEngine(ledger *StockLedger) *ReservationEngine {
	return &ReservationEngine{ledger: ledger}
}

// ReserveAll reserves every item in request order, stopping at the first
// failure. It returns how many items were reserved before the error;
// unwinding that prefix is the caller's responsibility.
func (e *ReservationEngine) ReserveAll(ctx context.Context, items []ItemRequest) (int, error) {
	for i, item := range items {
		if err := e.ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			return i, err
		}
	}
	return len(items), nil
}
