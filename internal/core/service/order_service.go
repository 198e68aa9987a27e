package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/trannm/order-reservation/internal/core/domain"
	"github.com/trannm/order-reservation/internal/metrics"
	"github.com/trannm/order-reservation/internal/port"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = 50 * time.Millisecond
)

// OrderService coordinates order creation and cancellation: it validates the
// request, prices it from stored product data, drives reservation and
// persistence, and compensates reservations when an attempt fails.
type OrderService struct {
	products     port.ProductStore
	orders       port.OrderStore
	publisher    port.EventPublisher
	idempotency  port.IdempotencyStore
	reservations *ReservationEngine
	compensation *CompensationManager
	logger       zerolog.Logger

	maxAttempts  int
	retryBackoff time.Duration
}

type Option func(*OrderService)

// WithRetryPolicy overrides how many creation attempts are made on version
// conflicts and the base delay between them.
func WithRetryPolicy(maxAttempts int, backoff time.Duration) Option {
	return func(s *OrderService) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if backoff > 0 {
			s.retryBackoff = backoff
		}
	}
}

// WithIdempotencyStore enables duplicate suppression for creation requests
// that carry a request ID.
func WithIdempotencyStore(store port.IdempotencyStore) Option {
	return func(s *OrderService) {
		s.idempotency = store
	}
}

func NewOrderService(products port.ProductStore, orders port.OrderStore, publisher port.EventPublisher, logger zerolog.Logger, opts ...Option) *OrderService {
	ledger := NewStockLedger(products)
	s := &OrderService{
		products:     products,
		orders:       orders,
		publisher:    publisher,
		reservations: NewReservationEngine(ledger),
		compensation: NewCompensationManager(ledger, logger),
		logger:       logger,
		maxAttempts:  defaultMaxAttempts,
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateOrderRequest struct {
	RequestID  string // optional client key for duplicate suppression
	CustomerID string
	Items      []ItemRequest
}

// CreateOrder reserves stock for every requested item and persists the order
// in pending status. Version conflicts from persistence are absorbed by a
// bounded retry loop; every other failure aborts immediately.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	if s.idempotency != nil && req.RequestID != "" {
		key := fmt.Sprintf("order:%s:%s", req.CustomerID, req.RequestID)
		ok, err := s.idempotency.SetIdempotency(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	// Prices always come from the store at creation time; any totals carried
	// by the client are ignored.
	items, total, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, &domain.ValidationError{Reason: "order total must be positive"}
	}

	for attempt := 1; ; attempt++ {
		order, err := s.attemptCreate(ctx, req.CustomerID, items)
		if err == nil {
			metrics.OrdersCreated.Inc()
			s.publish(ctx, domain.EventOrderCreated, order)
			return order, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			var insufficient *domain.InsufficientStockError
			if errors.As(err, &insufficient) {
				metrics.StockRejections.Inc()
			}
			return nil, err
		}

		metrics.VersionConflicts.Inc()
		if attempt >= s.maxAttempts {
			metrics.RetriesExhausted.Inc()
			s.logger.Warn().
				Int("attempts", attempt).
				Str("customer_id", req.CustomerID).
				Msg("order creation abandoned under contention")
			return nil, domain.ErrConflictExhausted
		}

		// A single attempt is indivisible, so the caller's deadline is
		// honored only between attempts.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryBackoff * time.Duration(attempt)):
		}
	}
}

// attemptCreate reserves stock for every item and persists the order. On any
// failure after a partial reservation the reserved prefix is unwound in
// reverse order before the original error is returned.
func (s *OrderService) attemptCreate(ctx context.Context, customerID string, items []domain.OrderItem) (*domain.Order, error) {
	requests := itemRequests(items)

	reserved, err := s.reservations.ReserveAll(ctx, requests)
	if err != nil {
		if reserved > 0 {
			s.compensation.RestoreItems(ctx, requests[:reserved])
		}
		return nil, err
	}

	order := newOrder(customerID, items)
	if err := s.orders.Create(ctx, order); err != nil {
		s.compensation.RestoreItems(ctx, requests)
		return nil, err
	}
	return order, nil
}

// CancelOrder moves the order to cancelled and returns its stock. Stock goes
// back only after the cancelled status is durable, so a concurrent cancel of
// the same order cannot restore twice.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	if err := order.Transition(domain.OrderStatusCancelled); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	s.compensation.RestoreOrder(ctx, order)
	metrics.OrdersCancelled.Inc()
	s.publish(ctx, domain.EventOrderCancelled, order)
	return order, nil
}

// UpdateOrderStatus applies a status change through the state machine. A
// cancellation target routes through CancelOrder so stock is restored.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID string, target domain.OrderStatus) (*domain.Order, error) {
	if target == domain.OrderStatusCancelled {
		return s.CancelOrder(ctx, orderID)
	}

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	if err := order.Transition(target); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventOrderStatusChanged, order)
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

// priceItems snapshots unit prices from the product store and computes line
// subtotals and the order total.
func (s *OrderService) priceItems(ctx context.Context, requests []ItemRequest) ([]domain.OrderItem, int64, error) {
	items := make([]domain.OrderItem, 0, len(requests))
	var total int64
	for _, req := range requests {
		product, err := s.products.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("load product %s: %w", req.ProductID, err)
		}
		if product == nil {
			return nil, 0, &domain.ProductNotFoundError{ProductID: req.ProductID}
		}
		if !product.Active {
			return nil, 0, &domain.ValidationError{
				Reason: fmt.Sprintf("product %s is not available for sale", req.ProductID),
			}
		}
		subtotal := product.Price * int64(req.Quantity)
		items = append(items, domain.OrderItem{
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
		total += subtotal
	}
	return items, total, nil
}

// publish is best-effort: a lost event never undoes a committed order.
func (s *OrderService) publish(ctx context.Context, eventType string, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, order.ID, domain.NewOrderEvent(order)); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", order.ID).
			Str("event_type", eventType).
			Msg("event publish failed")
	}
}

func validateRequest(req CreateOrderRequest) error {
	if req.CustomerID == "" {
		return &domain.ValidationError{Reason: "customer id is required"}
	}
	if len(req.Items) == 0 {
		return &domain.ValidationError{Reason: "order must contain at least one item"}
	}
	for _, item := range req.Items {
		if item.ProductID == "" {
			return &domain.ValidationError{Reason: "product id is required"}
		}
		if item.Quantity <= 0 {
			return &domain.ValidationError{
				Reason: fmt.Sprintf("quantity must be positive for product %s", item.ProductID),
			}
		}
	}
	return nil
}

func newOrder(customerID string, items []domain.OrderItem) *domain.Order {
	now := time.Now()
	order := &domain.Order{
		ID:          uuid.NewString(),
		OrderNumber: newOrderNumber(now),
		CustomerID:  customerID,
		Status:      domain.OrderStatusPending,
		Items:       append([]domain.OrderItem(nil), items...),
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	order.TotalAmount = order.Total()
	return order
}

// newOrderNumber yields a human-readable unique number. A rare collision is
// caught by the store's uniqueness check and resolved on the next attempt
// with a fresh number.
func newOrderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

func itemRequests(items []domain.OrderItem) []ItemRequest {
	requests := make([]ItemRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return requests
}
