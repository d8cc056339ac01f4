package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/store"
	"github.com/dmitrymomot/servicehub/pkg/keylock"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

const defaultMaxAttempts = 5

type Service struct {
	repo        Repository
	products    Products
	publisher   Publisher
	locks       keylock.Map[uuid.UUID]
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger
}

type Option func(*Service)

// WithMaxAttempts bounds the re-read and re-apply loop after version conflicts.
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

func NewService(repo Repository, products Products, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		products:    products,
		publisher:   publisher,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("cart"))
	return s
}

// Snapshot returns the committed cart without locking.
func (s *Service) Snapshot(ctx context.Context, customerID uuid.UUID) (Cart, error) {
	var c Cart
	err := retry.Once(ctx, func(ctx context.Context) error {
		var err error
		c, err = s.repo.CartByCustomer(ctx, customerID)
		return err
	})
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

// AddItem adds qty units of a product, merging into an existing line.
// A merged line keeps the price captured when it was first added.
func (s *Service) AddItem(ctx context.Context, customerID, productID uuid.UUID, qty int) (Cart, error) {
	if qty < 1 || qty > MaxLineQuantity {
		return Cart{}, ErrInvalidQuantity
	}
	p, err := s.products.Purchasable(ctx, productID)
	if err != nil {
		return Cart{}, err
	}
	return s.mutate(ctx, customerID, func(c *Cart) (bool, error) {
		return true, c.add(p, qty)
	})
}

// RemoveItem drops a line. Removing a missing line is a no-op.
func (s *Service) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (Cart, error) {
	return s.mutate(ctx, customerID, func(c *Cart) (bool, error) {
		return c.remove(productID), nil
	})
}

// SetQuantity sets a line's quantity. Zero removes the line; a missing line
// is created from the catalog.
func (s *Service) SetQuantity(ctx context.Context, customerID, productID uuid.UUID, qty int) (Cart, error) {
	if qty < 0 || qty > MaxLineQuantity {
		return Cart{}, ErrInvalidQuantity
	}
	return s.mutate(ctx, customerID, func(c *Cart) (bool, error) {
		if c.find(productID) >= 0 {
			return c.setQuantity(productID, qty), nil
		}
		if qty == 0 {
			return false, nil
		}
		p, err := s.products.Purchasable(ctx, productID)
		if err != nil {
			return false, err
		}
		return true, c.add(p, qty)
	})
}

// mutate applies fn to the latest cart and stores the result under a version
// guard. On a conflict the cart is re-read and fn re-applied.
func (s *Service) mutate(ctx context.Context, customerID uuid.UUID, fn func(*Cart) (bool, error)) (Cart, error) {
	unlock := s.locks.Lock(customerID)
	defer unlock()

	var unconfirmed *Cart
	transient := 0
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		current, err := s.Snapshot(ctx, customerID)
		if err != nil {
			return Cart{}, err
		}
		if unconfirmed != nil && sameCart(current, *unconfirmed) {
			s.notify(ctx, current)
			return current, nil
		}
		unconfirmed = nil

		next := current.Clone()
		next.CustomerID = customerID
		changed, err := fn(&next)
		if err != nil {
			return Cart{}, err
		}
		if !changed {
			return current, nil
		}

		next.Version = current.Version + 1
		next.UpdatedAt = s.now().UTC()

		err = s.repo.SaveCart(ctx, next, current.Version)
		switch {
		case err == nil:
			s.notify(ctx, next)
			return next, nil
		case errors.Is(err, store.ErrConflict):
			s.logger.DebugContext(ctx, "cart version conflict",
				logger.CustomerID(customerID.String()), logger.RetryCount(attempt))
			continue
		case retry.IsTransient(err):
			if transient > 0 {
				return Cart{}, fmt.Errorf("save cart: %w", err)
			}
			transient++
			// The write may have landed; the next read tells.
			s.logger.WarnContext(ctx, "cart save failed, re-reading",
				logger.CustomerID(customerID.String()), logger.Error(err))
			unconfirmed = &next
			continue
		default:
			return Cart{}, fmt.Errorf("save cart: %w", err)
		}
	}

	return Cart{}, ErrContended
}

func sameCart(a, b Cart) bool {
	if a.Version != b.Version || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		x, y := a.Items[i], b.Items[i]
		if x.ProductID != y.ProductID || x.Quantity != y.Quantity || !x.UnitPrice.Equal(y.UnitPrice) {
			return false
		}
	}
	return true
}

func (s *Service) notify(ctx context.Context, c Cart) {
	if s.publisher == nil {
		return
	}
	evt := CartUpdated{
		CustomerID: c.CustomerID,
		Version:    c.Version,
		ItemCount:  c.ItemCount(),
		Total:      c.Total(),
		Timestamp:  c.UpdatedAt,
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish cart update",
			logger.CustomerID(c.CustomerID.String()), logger.Error(err))
	}
}

var _ Products = (*catalog.Service)(nil)
