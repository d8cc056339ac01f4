package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/internal/store"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

type Service struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger
	// Concurrent reads of the same product share one repository call.
	reads singleflight.Group
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.logger = log }
}

func NewService(repo Repository, publisher Publisher, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("catalog"))
	return s
}

func (s *Service) List(ctx context.Context, f Filter) ([]Product, error) {
	var products []Product
	err := retry.Once(ctx, func(ctx context.Context) error {
		var err error
		products, err = s.repo.ListProducts(ctx, f)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// Get returns a product regardless of its Active flag.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	v, err, _ := s.reads.Do(id.String(), func() (any, error) {
		var p Product
		err := retry.Once(ctx, func(ctx context.Context) error {
			var err error
			p, err = s.repo.ProductByID(ctx, id)
			return err
		})
		return p, err
	})
	if errors.Is(err, store.ErrNotFound) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return v.(Product), nil
}

// Purchasable returns the product only when customers may add it to a cart.
func (s *Service) Purchasable(ctx context.Context, id uuid.UUID) (Product, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.Active {
		return Product{}, ErrProductInactive
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	now := s.now().UTC()
	p := Product{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Active:      in.Active == nil || *in.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.InfoContext(ctx, "product created", logger.ProductID(p.ID.String()))
	s.notify(ctx, p.ID, ActionCreated, &p)
	return p, nil
}

// Update replaces the writable fields. A nil Active keeps the current value.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in Input) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p.Name = in.Name
	p.Description = in.Description
	p.Price = in.Price
	if in.Active != nil {
		p.Active = *in.Active
	}
	p.UpdatedAt = s.now().UTC()

	err = retry.Once(ctx, func(ctx context.Context) error {
		return s.repo.UpdateProduct(ctx, p)
	})
	if errors.Is(err, store.ErrNotFound) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	s.logger.InfoContext(ctx, "product updated", logger.ProductID(p.ID.String()))
	s.notify(ctx, p.ID, ActionUpdated, &p)
	return p, nil
}

// Delete removes a product. Carts and orders keep the name and price they captured.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := retry.Once(ctx, func(ctx context.Context) error {
		return s.repo.DeleteProduct(ctx, id)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.logger.InfoContext(ctx, "product deleted", logger.ProductID(id.String()))
	s.notify(ctx, id, ActionDeleted, nil)
	return nil
}

// notify publishes after the write has committed; a lost notification is logged only.
func (s *Service) notify(ctx context.Context, id uuid.UUID, action ChangeAction, p *Product) {
	if s.publisher == nil {
		return
	}
	evt := ProductChanged{ProductID: id, Action: action, Product: p, Timestamp: s.now().UTC()}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product change",
			logger.ProductID(id.String()), logger.Error(err))
	}
}
