package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/internal/store"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

const defaultMaxAttempts = 5

type Service struct {
	repo        Repository
	carts       Carts
	publisher   Publisher
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Service)

func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.logger = log }
}

func NewService(repo Repository, carts Carts, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		carts:       carts,
		publisher:   publisher,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("order"))
	return s
}

// Checkout freezes the customer's cart into a pending order and empties the
// cart in the same commit. A cart changed in between is re-read.
func (s *Service) Checkout(ctx context.Context, customerID uuid.UUID) (Order, error) {
	orderID := uuid.New()
	transient := 0

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cart, err := s.carts.CartByCustomer(ctx, customerID)
		if err != nil {
			if !retry.IsTransient(err) || transient > 0 {
				return Order{}, fmt.Errorf("load cart: %w", err)
			}
			transient++
			continue
		}
		if cart.IsEmpty() {
			// An earlier attempt may have committed before its reply was lost.
			if attempt > 1 {
				if o, err := s.repo.OrderByID(ctx, orderID); err == nil {
					s.created(ctx, o)
					return o, nil
				}
			}
			return Order{}, ErrEmptyCart
		}

		now := s.now().UTC()
		o := Order{
			ID:         orderID,
			CustomerID: customerID,
			Items:      cart.Clone().Items,
			Total:      cart.Total(),
			State:      StatePending,
			Attempts:   []PaymentAttempt{},
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		err = s.repo.CommitCheckout(ctx, o, cart.Version)
		switch {
		case err == nil:
			s.created(ctx, o)
			return o, nil
		case errors.Is(err, store.ErrConflict):
			s.logger.DebugContext(ctx, "cart changed during checkout",
				logger.CustomerID(customerID.String()), logger.RetryCount(attempt))
		case retry.IsTransient(err):
			if transient > 0 {
				return Order{}, fmt.Errorf("commit checkout: %w", err)
			}
			transient++
			// The commit may have landed; the next read tells.
			s.logger.WarnContext(ctx, "checkout commit failed, re-reading",
				logger.CustomerID(customerID.String()), logger.Error(err))
		default:
			return Order{}, fmt.Errorf("commit checkout: %w", err)
		}
	}

	return Order{}, ErrContended
}

func (s *Service) created(ctx context.Context, o Order) {
	s.logger.InfoContext(ctx, "order created",
		logger.OrderID(o.ID.String()),
		logger.CustomerID(o.CustomerID.String()),
		slog.String("total", o.Total.String()))
	evt := OrderCreated{Change: changeOf(o, ""), ItemCount: len(o.Items)}
	s.publish(ctx, o, evt)
}

// RecordPaymentAttempt applies a provider outcome to an order.
func (s *Service) RecordPaymentAttempt(ctx context.Context, orderID uuid.UUID, outcome Outcome, reference string) (Result, error) {
	if _, err := ParseOutcome(string(outcome)); err != nil {
		return Result{}, err
	}
	return s.transition(ctx, orderID, outcome, reference, nil)
}

// RecordPaymentAttemptForCustomer lets a customer abandon the payment of
// their own order. Only a decline is accepted; authorizations and captures
// come from the provider webhook. Other customers' orders are reported as
// missing.
func (s *Service) RecordPaymentAttemptForCustomer(ctx context.Context, customerID, orderID uuid.UUID, outcome Outcome, reference string) (Result, error) {
	if _, err := ParseOutcome(string(outcome)); err != nil {
		return Result{}, err
	}
	if outcome != OutcomeDeclined {
		return Result{}, ErrOutcomeNotAllowed
	}
	return s.transition(ctx, orderID, outcome, reference, func(o Order) error {
		if o.CustomerID != customerID {
			return ErrNotFound
		}
		return nil
	})
}

// Refund moves a captured order to refunded.
func (s *Service) Refund(ctx context.Context, orderID uuid.UUID, reference string) (Result, error) {
	return s.transition(ctx, orderID, outcomeRefund, reference, nil)
}

func (s *Service) transition(ctx context.Context, orderID uuid.UUID, outcome Outcome, reference string, guard func(Order) error) (Result, error) {
	attemptID := uuid.New()
	transient := 0

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.Get(ctx, orderID)
		if err != nil {
			return Result{}, err
		}
		if guard != nil {
			if err := guard(current); err != nil {
				return Result{}, err
			}
		}
		if current.hasAttempt(attemptID) {
			// Applied by an earlier try whose reply was lost.
			s.transitioned(ctx, current, reference)
			return Result{Order: current, Changed: true}, nil
		}

		to, err := Next(current.State, outcome)
		if err != nil {
			return Result{}, err
		}
		if to == current.State {
			s.logger.DebugContext(ctx, "repeated payment signal ignored",
				logger.OrderID(orderID.String()), logger.State(string(to)))
			return Result{Order: current, Changed: false}, nil
		}

		pa := PaymentAttempt{
			ID:        attemptID,
			Outcome:   outcome,
			From:      current.State,
			To:        to,
			Reference: reference,
			At:        s.now().UTC(),
		}
		updated, err := s.repo.TransitionOrder(ctx, orderID, current.State, pa)
		switch {
		case err == nil:
			s.transitioned(ctx, updated, reference)
			return Result{Order: updated, Changed: true}, nil
		case errors.Is(err, store.ErrConflict):
			s.logger.DebugContext(ctx, "order state moved, re-reading",
				logger.OrderID(orderID.String()), logger.RetryCount(attempt))
		case retry.IsTransient(err):
			if transient > 0 {
				return Result{}, fmt.Errorf("transition order: %w", err)
			}
			transient++
			s.logger.WarnContext(ctx, "order transition failed, re-reading",
				logger.OrderID(orderID.String()), logger.Error(err))
		case errors.Is(err, store.ErrNotFound):
			return Result{}, ErrNotFound
		default:
			return Result{}, fmt.Errorf("transition order: %w", err)
		}
	}

	return Result{}, ErrContended
}

func (s *Service) transitioned(ctx context.Context, o Order, reference string) {
	s.logger.InfoContext(ctx, "order state changed",
		logger.OrderID(o.ID.String()), logger.State(string(o.State)))
	if evt := transitionEvent(o, reference); evt != nil {
		s.publish(ctx, o, evt)
	}
}

func (s *Service) publish(ctx context.Context, o Order, evt any) {
	if s.publisher == nil {
		return
	}
	// Events outlive the request that caused them.
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish order event",
			logger.OrderID(o.ID.String()), logger.Error(err))
	}
}

func (s *Service) Get(ctx context.Context, orderID uuid.UUID) (Order, error) {
	var o Order
	err := retry.Once(ctx, func(ctx context.Context) error {
		var err error
		o, err = s.repo.OrderByID(ctx, orderID)
		return err
	})
	if errors.Is(err, store.ErrNotFound) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetForCustomer hides other customers' orders behind ErrNotFound.
func (s *Service) GetForCustomer(ctx context.Context, customerID, orderID uuid.UUID) (Order, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.CustomerID != customerID {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Order, error) {
	return s.List(ctx, Filter{CustomerID: customerID, Limit: limit, Offset: offset})
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	f = f.normalized()
	var orders []Order
	err := retry.Once(ctx, func(ctx context.Context) error {
		var err error
		orders, err = s.repo.ListOrders(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
