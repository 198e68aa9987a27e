package event

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trannm/order-reservation/internal/port"
)

const publishTimeout = 5 * time.Second

// AsyncPublisher decouples event emission from request handling: Publish
// enqueues and returns immediately, a worker pool drains the queue to the
// wrapped publisher. Close stops intake and waits for the queue to drain.
type AsyncPublisher struct {
	inner  port.EventPublisher
	queue  chan queuedEvent
	logger zerolog.Logger
	wg     sync.WaitGroup
}

type queuedEvent struct {
	eventType string
	orderID   string
	payload   any
}

func NewAsyncPublisher(inner port.EventPublisher, queueSize, workers int, logger zerolog.Logger) *AsyncPublisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	p := &AsyncPublisher{
		inner:  inner,
		queue:  make(chan queuedEvent, queueSize),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	return p
}

func (p *AsyncPublisher) workerLoop(id int) {
	defer p.wg.Done()
	for ev := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := p.inner.Publish(ctx, ev.eventType, ev.orderID, ev.payload); err != nil {
			p.logger.Error().Err(err).
				Int("worker", id).
				Str("order_id", ev.orderID).
				Str("event_type", ev.eventType).
				Msg("async event publish failed")
		}
		cancel()
	}
}

// Publish never blocks the caller: when the queue is full the event is
// dropped and logged, matching the best-effort delivery contract.
func (p *AsyncPublisher) Publish(_ context.Context, eventType, orderID string, payload any) error {
	select {
	case p.queue <- queuedEvent{eventType: eventType, orderID: orderID, payload: payload}:
	default:
		p.logger.Warn().
			Str("order_id", orderID).
			Str("event_type", eventType).
			Msg("event queue full, dropping event")
	}
	return nil
}

// Close drains pending events and stops the workers.
func (p *AsyncPublisher) Close() {
	close(p.queue)
	p.wg.Wait()
}
