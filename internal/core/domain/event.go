package domain

// Order lifecycle event types published to the event stream.
const (
	EventOrderCreated       = "order.created"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the payload carried by order lifecycle events.
type OrderEvent struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	CustomerID  string           `json:"customer_id"`
	Status      OrderStatus      `json:"status"`
	TotalAmount int64            `json:"total_amount"`
	Items       []OrderEventItem `json:"items,omitempty"`
}

type OrderEventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// NewOrderEvent snapshots an order into an event payload.
func NewOrderEvent(o *Order) OrderEvent {
	items := make([]OrderEventItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderEventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return OrderEvent{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		CustomerID:  o.CustomerID,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Items:       items,
	}
}
