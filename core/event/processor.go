package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/servicehub/core/logger"
)

type eventSource interface {
	Events() <-chan []byte
}

// Processor reads events from a source and runs the handlers registered for
// each event name. Events are handled one at a time in arrival order, so a
// handler sees the events of one aggregate in the order they were published.
type Processor struct {
	handlers        map[string][]Handler
	source          eventSource
	fallbackHandler func(context.Context, Event) error
	logger          *slog.Logger

	mu      sync.Mutex
	running bool

	eventsProcessed atomic.Int64
	eventsFailed    atomic.Int64
	lastActivityAt  atomic.Int64
}

// ProcessorStats is a point-in-time view of processor activity.
type ProcessorStats struct {
	EventsProcessed int64
	EventsFailed    int64
	IsRunning       bool
	LastActivityAt  time.Time
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		handlers: make(map[string][]Handler),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start consumes events until ctx is done or the source closes.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrProcessorAlreadyStarted
	}
	if p.source == nil {
		p.mu.Unlock()
		return ErrEventSourceNil
	}
	if len(p.handlers) == 0 && p.fallbackHandler == nil {
		p.mu.Unlock()
		return ErrNoHandlers
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	p.logger.InfoContext(ctx, "event processor started", logger.Count("handler_count", len(p.handlers)))

	events := p.source.Events()
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("event processor stopped")
			return ctx.Err()
		case data, ok := <-events:
			if !ok {
				p.logger.Info("event source closed")
				return nil
			}
			p.dispatch(ctx, data)
		}
	}
}

// Run returns a function for errgroup.Go. Context cancellation is a clean exit.
func (p *Processor) Run(ctx context.Context) func() error {
	return func() error {
		err := p.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}

func (p *Processor) dispatch(ctx context.Context, data []byte) {
	var wire wireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		p.eventsFailed.Add(1)
		p.logger.ErrorContext(ctx, "failed to decode event", logger.Error(err))
		return
	}
	evt := wire.event()
	ctx = WithEventMeta(ctx, evt)

	handlers := p.handlers[evt.Name]
	if len(handlers) == 0 {
		if p.fallbackHandler != nil {
			p.run(ctx, evt, "fallback", func(ctx context.Context) error { return p.fallbackHandler(ctx, evt) })
		}
		return
	}

	for _, h := range handlers {
		p.run(ctx, evt, h.EventName(), func(ctx context.Context) error { return h.Handle(ctx, evt.Payload) })
	}
}

func (p *Processor) run(ctx context.Context, evt Event, name string, fn func(context.Context) error) {
	start := time.Now()
	defer func() { p.lastActivityAt.Store(time.Now().Unix()) }()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panicked: %v", r)
			}
		}()
		return fn(ctx)
	}()

	if err != nil {
		p.eventsFailed.Add(1)
		p.logger.ErrorContext(ctx, "event handler failed",
			logger.Event(evt.Name),
			logger.ID("event_id", evt.ID),
			slog.String("handler", name),
			logger.Elapsed(start),
			logger.Error(err))
		return
	}

	p.eventsProcessed.Add(1)
	p.logger.DebugContext(ctx, "event handled",
		logger.Event(evt.Name),
		logger.ID("event_id", evt.ID),
		logger.Elapsed(start))
}

func (p *Processor) Stats() ProcessorStats {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	var last time.Time
	if ts := p.lastActivityAt.Load(); ts > 0 {
		last = time.Unix(ts, 0)
	}

	return ProcessorStats{
		EventsProcessed: p.eventsProcessed.Load(),
		EventsFailed:    p.eventsFailed.Load(),
		IsRunning:       running,
		LastActivityAt:  last,
	}
}

// Healthcheck fails when the processor is not consuming events.
func (p *Processor) Healthcheck(context.Context) error {
	if !p.Stats().IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrProcessorNotRunning)
	}
	return nil
}
