package analytics

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

// Publisher is the part of kafka.Producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector buffers events and publishes them from a single goroutine so
// request handlers never wait on Kafka.
type Collector struct {
	publisher Publisher
	eventCh   chan Event
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan Event, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues an event, dropping it when the buffer is full or the
// collector has been closed.
func (c *Collector) Track(event Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)", "type", event.Type)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.Type)
	}
}

// Close stops accepting events and waits for the publisher loop to finish.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event Event) {
	if err := c.publisher.Publish(ctx, kafka.Event{
		Key:   string(event.Type),
		Value: event,
	}); err != nil {
		c.logger.Error("failed to publish analytics event", "type", event.Type, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
