package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/servicehub/core/logger"
)

type publishBus interface {
	Publish(ctx context.Context, data []byte) error
}

// Publisher encodes payloads into Event envelopes and puts them on a bus.
type Publisher struct {
	bus    publishBus
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

func WithPublisherLogger(log *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if log != nil {
			p.logger = log
		}
	}
}

func NewPublisher(bus publishBus, opts ...PublisherOption) *Publisher {
	p := &Publisher{bus: bus, logger: logger.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish sends payload as a named event. Handlers registered for the
// payload's type name receive it.
func (p *Publisher) Publish(ctx context.Context, payload any) error {
	evt := NewEvent(payload)
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", evt.Name, err)
	}
	if err := p.bus.Publish(ctx, data); err != nil {
		return fmt.Errorf("publish event %s: %w", evt.Name, err)
	}
	p.logger.DebugContext(ctx, "event published", logger.Event(evt.Name), logger.ID("event_id", evt.ID))
	return nil
}
