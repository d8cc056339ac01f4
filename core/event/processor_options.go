package event

import (
	"context"
	"log/slog"
)

type ProcessorOption func(*Processor)

// WithHandler registers handlers by their event name.
func WithHandler(handlers ...Handler) ProcessorOption {
	return func(p *Processor) {
		for _, h := range handlers {
			p.handlers[h.EventName()] = append(p.handlers[h.EventName()], h)
		}
	}
}

func WithEventSource(source eventSource) ProcessorOption {
	return func(p *Processor) {
		if source != nil {
			p.source = source
		}
	}
}

func WithProcessorLogger(log *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if log != nil {
			p.logger = log
		}
	}
}

// WithFallbackHandler handles events no registered handler claims.
func WithFallbackHandler(fn func(context.Context, Event) error) ProcessorOption {
	return func(p *Processor) {
		if fn != nil {
			p.fallbackHandler = fn
		}
	}
}
