package service

import (
	"context"
	"errors"
	"testing"

	"github.com/trannm/order-reservation/internal/core/domain"
)

func TestLedgerReserve_Success(t *testing.T) {
	products := newMockProductStore(product("p1", 100, 5))
	ledger := NewStockLedger(products)

	if err := ledger.Reserve(context.Background(), "p1", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := products.stock("p1"); got != 2 {
		t.Errorf("expected stock 2, got %d", got)
	}
}

func TestLedgerReserve_InsufficientReportsCurrentStock(t *testing.T) {
	products := newMockProductStore(product("p1", 100, 2))
	ledger := NewStockLedger(products)

	err := ledger.Reserve(context.Background(), "p1", 5)

	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 2 || insufficient.Requested != 5 {
		t.Errorf("unexpected detail: %+v", insufficient)
	}
	// The informational re-read must not have mutated anything.
	if got := products.stock("p1"); got != 2 {
		t.Errorf("expected stock unchanged at 2, got %d", got)
	}
}

func TestLedgerReserve_MissingProduct(t *testing.T) {
	ledger := NewStockLedger(newMockProductStore())

	err := ledger.Reserve(context.Background(), "ghost", 1)

	var notFound *domain.ProductNotFoundError
	if !errors.As(err, &notFound) || notFound.ProductID != "ghost" {
		t.Errorf("expected ProductNotFoundError for ghost, got %v", err)
	}
}

func TestLedgerRestore(t *testing.T) {
	products := newMockProductStore(product("p1", 100, 2))
	ledger := NewStockLedger(products)

	if err := ledger.Restore(context.Background(), "p1", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := products.stock("p1"); got != 5 {
		t.Errorf("expected stock 5, got %d", got)
	}
}
