// Package audit publishes compile events to Kafka without slowing down the
// request path. Events are buffered, batched and flushed either when a batch
// fills up or on a timer.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/brs-query-compiler/pkg/metrics"
)

// Publisher is implemented by *kafka.Producer.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

type Options struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

func (o *Options) withDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 10000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 2 * time.Second
	}
}

type Collector struct {
	publisher Publisher
	opts      Options
	metrics   *metrics.Metrics
	eventCh   chan CompileEvent
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a collector; m may be nil.
func NewCollector(publisher Publisher, opts Options, m *metrics.Metrics) *Collector {
	opts.withDefaults()
	return &Collector{
		publisher: publisher,
		opts:      opts,
		metrics:   m,
		eventCh:   make(chan CompileEvent, opts.BufferSize),
		logger:    slog.Default().With("component", "audit-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the flush loop. It stops when ctx is cancelled or Close is
// called, flushing whatever is buffered.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("audit collector started",
		"buffer_size", c.opts.BufferSize,
		"batch_size", c.opts.BatchSize,
		"flush_interval", c.opts.FlushInterval,
	)
}

// Track queues an event. It never blocks: when the buffer is full or the
// collector is closed the event is dropped.
func (c *Collector) Track(event CompileEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.count("dropped", 1)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.count("dropped", 1)
		c.logger.Warn("audit event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the final flush.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]kafka.Event, 0, c.opts.BatchSize)
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.finalFlush(batch)
				return
			}
			batch = append(batch, kafka.Event{Key: event.key(), Value: event})
			if len(batch) >= c.opts.BatchSize {
				c.flush(ctx, batch)
				batch = make([]kafka.Event, 0, c.opts.BatchSize)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				c.flush(ctx, batch)
				batch = make([]kafka.Event, 0, c.opts.BatchSize)
			}
		case <-ctx.Done():
			c.finalFlush(c.drainRemaining(batch))
			return
		}
	}
}

func (c *Collector) drainRemaining(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, kafka.Event{Key: event.key(), Value: event})
		default:
			return batch
		}
	}
}

func (c *Collector) finalFlush(batch []kafka.Event) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.count("failed", len(batch))
		c.logger.Error("audit batch flush failed",
			"batch_size", len(batch),
			"error", err,
		)
		return
	}
	c.count("published", len(batch))
	c.logger.Debug("audit batch flushed", "events", len(batch))
}

func (c *Collector) count(status string, n int) {
	if c.metrics != nil {
		c.metrics.AuditEventsTotal.WithLabelValues(status).Add(float64(n))
	}
}
