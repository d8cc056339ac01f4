package event

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/servicehub/core/logger"
)

const DefaultChannelBufferSize = 256

// ChannelBus is an in-process Bus over a buffered channel. It serves a
// single server instance and tests; use redisbus when several processes
// hold websocket connections.
//
//	bus := event.NewChannelBus(event.WithBufferSize(512))
//	pub := event.NewPublisher(bus)
//	proc := event.NewProcessor(event.WithEventSource(bus), event.WithHandler(h))
type ChannelBus struct {
	ch     chan []byte
	logger *slog.Logger
	mu     sync.RWMutex
	closed bool
}

type ChannelBusOption func(*ChannelBus)

// WithBufferSize sets how many events may be queued before Publish blocks.
func WithBufferSize(size int) ChannelBusOption {
	return func(b *ChannelBus) {
		if size > 0 {
			b.ch = make(chan []byte, size)
		}
	}
}

func WithChannelLogger(log *slog.Logger) ChannelBusOption {
	return func(b *ChannelBus) {
		if log != nil {
			b.logger = log
		}
	}
}

func NewChannelBus(opts ...ChannelBusOption) *ChannelBus {
	b := &ChannelBus{
		ch:     make(chan []byte, DefaultChannelBufferSize),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish queues data, blocking while the buffer is full until ctx is done.
func (b *ChannelBus) Publish(ctx context.Context, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case b.ch <- data:
		return nil
	}
}

func (b *ChannelBus) Events() <-chan []byte {
	return b.ch
}

func (b *ChannelBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}
	b.closed = true
	close(b.ch)
	b.logger.Debug("channel bus closed")
	return nil
}
