// Package queue delivers customer change events to the message broker
// without blocking the request path.
package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
	"github.com/bizdesk/customer-service/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Sink delivers one event to its destination.
type Sink interface {
	Send(ctx context.Context, event domain.CustomerEvent) error
}

// Dispatcher routes customer events to a fixed set of workers using
// consistent hashing on the customer ID, preserving per-customer ordering.
type Dispatcher struct {
	workers []chan domain.CustomerEvent
	sink    Sink
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ ports.CustomerEventPublisher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink Sink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.CustomerEvent, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.CustomerEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. ctx is handed to the sink; workers
// exit once Close has been called and their channel is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish enqueues event for its customer's worker. It never blocks: when the
// worker channel is full or the dispatcher is closed the event is dropped.
func (d *Dispatcher) Publish(_ context.Context, event domain.CustomerEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	idx := d.shardIndex(event.CustomerID)
	ch := d.workers[idx]
	select {
	case ch <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(ch)))
	default:
		d.drop(event, "worker queue full")
	}
}

// Close stops accepting events and waits until every queued event has been
// handed to the sink.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) drop(event domain.CustomerEvent, reason string) {
	metrics.EventsDroppedTotal.WithLabelValues(string(event.Type)).Inc()
	d.log.Warn().
		Str("event_type", string(event.Type)).
		Int64("customer_id", event.CustomerID).
		Str("reason", reason).
		Msg("customer event dropped")
}

// shardIndex maps a customer ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(customerID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(customerID, 10)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.CustomerEvent) {
	defer d.wg.Done()
	depth := metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(id))

	for event := range ch {
		depth.Set(float64(len(ch)))
		if err := d.sink.Send(ctx, event); err != nil {
			metrics.EventsErrorsTotal.WithLabelValues("publish").Inc()
			d.log.Error().Err(err).
				Str("event_type", string(event.Type)).
				Int64("customer_id", event.CustomerID).
				Int("worker_id", id).
				Msg("customer event publish failed")
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
	}
}
