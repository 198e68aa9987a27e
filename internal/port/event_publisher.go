package port

import "context"

type EventPublisher interface {
	// Publish emits an order lifecycle event, keyed by order ID. Delivery is
	// best-effort, at-least-once; callers must not fail their own operation
	// on a publish error.
	Publish(ctx context.Context, eventType, orderID string, payload any) error
}
