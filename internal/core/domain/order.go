package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// transitions is the full legality table for status changes. Cancellation is
// possible until the order ships; completed and cancelled orders are final.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusCompleted},
}

// CanTransitionTo reports whether moving to target is legal from s.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, to := range transitions[s] {
		if to == target {
			return true
		}
	}
	return false
}

// ParseOrderStatus maps the wire representation onto a known status.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	switch s := OrderStatus(raw); s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCompleted,
		OrderStatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

// OrderItem is one priced line of an order. The unit price is a snapshot of
// the product price at creation time.
type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice int64
	Subtotal  int64
}

type Order struct {
	ID          string
	OrderNumber string
	CustomerID  string
	Status      OrderStatus
	TotalAmount int64
	Items       []OrderItem
	Version     int // optimistic locking
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transition validates the status change against the legality table and
// records it. It never touches stock; restoring reserved stock after a
// cancellation is the caller's job.
func (o *Order) Transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{From: o.Status, To: target}
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// Total sums the item subtotals.
func (o *Order) Total() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal
	}
	return total
}
