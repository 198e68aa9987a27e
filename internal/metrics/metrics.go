package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created.",
	})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Orders successfully cancelled.",
	})

	StockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_insufficient_stock_total",
		Help: "Order attempts rejected for insufficient stock.",
	})

	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_version_conflicts_total",
		Help: "Optimistic-concurrency conflicts hit while persisting orders.",
	})

	RetriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_retries_exhausted_total",
		Help: "Order creations abandoned after the retry budget ran out.",
	})
)
