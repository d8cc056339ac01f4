// Package redisbus implements event.Bus over Redis pub/sub.
//
// Every process subscribed to the channel receives every published event.
// Delivery is at most once: a process that is disconnected while an event is
// published does not see it.
package redisbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/servicehub/core/event"
	"github.com/dmitrymomot/servicehub/core/logger"
)

const (
	DefaultChannel    = "servicehub:events"
	defaultBufferSize = 256
)

// Config holds the bus settings.
type Config struct {
	Channel    string `env:"EVENT_CHANNEL" envDefault:"servicehub:events"`
	BufferSize int    `env:"EVENT_BUFFER_SIZE" envDefault:"256"`
}

// Bus publishes to and subscribes from one Redis channel.
type Bus struct {
	client  redis.UniversalClient
	channel string
	pubsub  *redis.PubSub
	events  chan []byte
	logger  *slog.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Bus)

func WithChannel(channel string) Option {
	return func(b *Bus) {
		if channel != "" {
			b.channel = channel
		}
	}
}

func WithBufferSize(size int) Option {
	return func(b *Bus) {
		if size > 0 {
			b.events = make(chan []byte, size)
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(b *Bus) {
		if log != nil {
			b.logger = log
		}
	}
}

// FromConfig converts cfg into options.
func FromConfig(cfg Config) []Option {
	return []Option{WithChannel(cfg.Channel), WithBufferSize(cfg.BufferSize)}
}

// New subscribes to the channel and starts forwarding messages to Events.
// The subscription is confirmed before New returns, so events published
// afterwards are not missed.
func New(ctx context.Context, client redis.UniversalClient, opts ...Option) (*Bus, error) {
	b := &Bus{
		client:  client,
		channel: DefaultChannel,
		events:  make(chan []byte, defaultBufferSize),
		logger:  logger.Nop(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.pubsub = client.Subscribe(ctx, b.channel)
	if _, err := b.pubsub.Receive(ctx); err != nil {
		_ = b.pubsub.Close()
		return nil, errors.Join(ErrSubscribe, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	go b.forward(runCtx)

	return b, nil
}

func (b *Bus) forward(ctx context.Context) {
	defer close(b.done)
	defer close(b.events)

	msgs := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case b.events <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Publish sends data to every subscribed process, including this one.
func (b *Bus) Publish(ctx context.Context, data []byte) error {
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}

func (b *Bus) Events() <-chan []byte {
	return b.events
}

// Close unsubscribes and closes the Events channel.
func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.cancel()
		err = b.pubsub.Close()
		<-b.done
		b.logger.Debug("redis event bus closed", slog.String("channel", b.channel))
	})
	return err
}

var _ event.Bus = (*Bus)(nil)
