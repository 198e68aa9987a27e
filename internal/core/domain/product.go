package domain

import "time"

// Product is a sellable inventory unit. Stock is mutated only through the
// stock ledger's conditional writes; Version moves on every stock mutation.
type Product struct {
	ID        string
	Name      string
	Price     int64 // minor currency units
	Stock     int
	Active    bool
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}
