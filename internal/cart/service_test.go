package cart_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/store"
	"github.com/dmitrymomot/servicehub/internal/store/memstore"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

type fixture struct {
	store    *memstore.Store
	catalog  *catalog.Service
	carts    *cart.Service
	customer uuid.UUID
}

func newFixture(t *testing.T, opts ...cart.Option) *fixture {
	t.Helper()
	st := memstore.New()
	products := catalog.NewService(st, nil)
	return &fixture{
		store:    st,
		catalog:  products,
		carts:    cart.NewService(st, products, nil, opts...),
		customer: uuid.New(),
	}
}

func (f *fixture) product(t *testing.T, name, price string) catalog.Product {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), catalog.Input{Name: name, Price: decimal.RequireFromString(price)})
	require.NoError(t, err)
	return p
}

func TestCart_Totals(t *testing.T) {
	t.Parallel()

	c := cart.Cart{Items: []cart.Item{
		{ProductID: uuid.New(), Quantity: 2, UnitPrice: decimal.RequireFromString("10.25")},
		{ProductID: uuid.New(), Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")},
	}}
	assert.True(t, decimal.RequireFromString("20.80").Equal(c.Total()))
	assert.Equal(t, 5, c.ItemCount())
	assert.False(t, c.IsEmpty())
	assert.True(t, cart.Cart{}.IsEmpty())
	assert.True(t, cart.Cart{}.Total().IsZero())

	clone := c.Clone()
	clone.Items[0].Quantity = 99
	assert.Equal(t, 2, c.Items[0].Quantity)
}

func TestService_AddItem(t *testing.T) {
	t.Parallel()

	t.Run("merges lines and keeps captured price", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		p := f.product(t, "Haircut", "15.00")

		c, err := f.carts.AddItem(ctx, f.customer, p.ID, 2)
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Equal(t, int64(1), c.Version)

		_, err = f.catalog.Update(ctx, p.ID, catalog.Input{Name: "Haircut", Price: decimal.RequireFromString("20.00")})
		require.NoError(t, err)

		c, err = f.carts.AddItem(ctx, f.customer, p.ID, 3)
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Equal(t, 5, c.Items[0].Quantity)
		assert.True(t, decimal.RequireFromString("15.00").Equal(c.Items[0].UnitPrice))
		assert.Equal(t, int64(2), c.Version)
	})

	t.Run("keeps insertion order", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		a := f.product(t, "A", "1")
		b := f.product(t, "B", "2")

		_, err := f.carts.AddItem(ctx, f.customer, b.ID, 1)
		require.NoError(t, err)
		c, err := f.carts.AddItem(ctx, f.customer, a.ID, 1)
		require.NoError(t, err)
		require.Len(t, c.Items, 2)
		assert.Equal(t, b.ID, c.Items[0].ProductID)
		assert.Equal(t, a.ID, c.Items[1].ProductID)
	})

	t.Run("rejects bad quantities", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		p := f.product(t, "Massage", "40")

		for _, qty := range []int{0, -1, cart.MaxLineQuantity + 1} {
			_, err := f.carts.AddItem(ctx, f.customer, p.ID, qty)
			assert.ErrorIs(t, err, cart.ErrInvalidQuantity, "qty %d", qty)
		}

		_, err := f.carts.AddItem(ctx, f.customer, p.ID, cart.MaxLineQuantity)
		require.NoError(t, err)
		_, err = f.carts.AddItem(ctx, f.customer, p.ID, 1)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity, "merge may not exceed the line cap")
	})

	t.Run("unknown and inactive products", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		ctx := context.Background()
		inactive := false
		p, err := f.catalog.Create(ctx, catalog.Input{Name: "Retired", Price: decimal.NewFromInt(5), Active: &inactive})
		require.NoError(t, err)

		_, err = f.carts.AddItem(ctx, f.customer, uuid.New(), 1)
		assert.ErrorIs(t, err, catalog.ErrNotFound)
		_, err = f.carts.AddItem(ctx, f.customer, p.ID, 1)
		assert.ErrorIs(t, err, catalog.ErrProductInactive)

		c, err := f.carts.Snapshot(ctx, f.customer)
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
		assert.Zero(t, c.Version)
	})
}

func TestService_SetQuantityAndRemove(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Yoga class", "12.5")

	c, err := f.carts.SetQuantity(ctx, f.customer, p.ID, 4)
	require.NoError(t, err, "missing line is created")
	require.Len(t, c.Items, 1)
	assert.Equal(t, 4, c.Items[0].Quantity)

	c, err = f.carts.SetQuantity(ctx, f.customer, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Version, "unchanged quantity is not stored")

	_, err = f.carts.SetQuantity(ctx, f.customer, p.ID, -1)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	c, err = f.carts.SetQuantity(ctx, f.customer, p.ID, 0)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(2), c.Version)

	c, err = f.carts.RemoveItem(ctx, f.customer, p.ID)
	require.NoError(t, err, "removing a missing line is a no-op")
	assert.Equal(t, int64(2), c.Version)
}

func TestService_ConcurrentAddsAreSerializable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Laundry", "3")

	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.carts.AddItem(ctx, f.customer, p.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := f.carts.Snapshot(ctx, f.customer)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, workers, c.Items[0].Quantity)
	assert.Equal(t, int64(workers), c.Version)
}

func TestService_TwoProcessesShareOneStore(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	products := catalog.NewService(st, nil)
	p, err := products.Create(context.Background(), catalog.Input{Name: "Cleaning", Price: decimal.NewFromInt(7)})
	require.NoError(t, err)

	// Separate services have separate lock maps, so only the version guard orders them.
	a := cart.NewService(st, products, nil, cart.WithMaxAttempts(50))
	b := cart.NewService(st, products, nil, cart.WithMaxAttempts(50))
	customer := uuid.New()

	const perService = 20
	var wg sync.WaitGroup
	for _, svc := range []*cart.Service{a, b} {
		for range perService {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.AddItem(context.Background(), customer, p.ID, 1)
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	c, err := a.Snapshot(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2*perService, c.Items[0].Quantity)
}

// ackLossRepo stores the first save and then reports a transient failure.
type ackLossRepo struct {
	cart.Repository
	lost atomic.Bool
}

func (r *ackLossRepo) SaveCart(ctx context.Context, c cart.Cart, expected int64) error {
	if err := r.Repository.SaveCart(ctx, c, expected); err != nil {
		return err
	}
	if r.lost.CompareAndSwap(false, true) {
		return retry.Transient(errors.New("i/o timeout"))
	}
	return nil
}

func TestService_LostAckIsNotAppliedTwice(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	products := catalog.NewService(st, nil)
	p, err := products.Create(context.Background(), catalog.Input{Name: "Tutoring", Price: decimal.NewFromInt(30)})
	require.NoError(t, err)

	svc := cart.NewService(&ackLossRepo{Repository: st}, products, nil)
	customer := uuid.New()

	c, err := svc.AddItem(context.Background(), customer, p.ID, 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, int64(1), c.Version)
}

type alwaysConflict struct {
	cart.Repository
}

func (alwaysConflict) SaveCart(context.Context, cart.Cart, int64) error {
	return store.ErrConflict
}

func TestService_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	products := catalog.NewService(st, nil)
	p, err := products.Create(context.Background(), catalog.Input{Name: "Repair", Price: decimal.NewFromInt(9)})
	require.NoError(t, err)

	svc := cart.NewService(alwaysConflict{Repository: st}, products, nil, cart.WithMaxAttempts(3))
	_, err = svc.AddItem(context.Background(), uuid.New(), p.ID, 1)
	assert.ErrorIs(t, err, cart.ErrContended)
}

// flakySave fails every save with a transient error.
type flakySave struct {
	cart.Repository
	calls atomic.Int32
}

func (r *flakySave) SaveCart(context.Context, cart.Cart, int64) error {
	r.calls.Add(1)
	return retry.Transient(errors.New("connection refused"))
}

func TestService_TransientSaveIsRetriedOnce(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	products := catalog.NewService(st, nil)
	p, err := products.Create(context.Background(), catalog.Input{Name: "Plumbing", Price: decimal.NewFromInt(40)})
	require.NoError(t, err)

	repo := &flakySave{Repository: st}
	svc := cart.NewService(repo, products, nil)
	customer := uuid.New()

	_, err = svc.AddItem(context.Background(), customer, p.ID, 1)
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))
	assert.NotErrorIs(t, err, cart.ErrContended)
	assert.Equal(t, int32(2), repo.calls.Load())

	c, err := svc.Snapshot(context.Background(), customer)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

// ctxPublisher records whether the context it was given was still live.
type ctxPublisher struct {
	mu   sync.Mutex
	errs []error
}

func (p *ctxPublisher) Publish(ctx context.Context, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, ctx.Err())
	return ctx.Err()
}

func TestService_PublishesAfterRequestIsCancelled(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	products := catalog.NewService(st, nil)
	p, err := products.Create(context.Background(), catalog.Input{Name: "Gardening", Price: decimal.NewFromInt(12)})
	require.NoError(t, err)

	pub := &ctxPublisher{}
	svc := cart.NewService(st, products, pub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.AddItem(ctx, uuid.New(), p.ID, 1)
	require.NoError(t, err)

	require.Len(t, pub.errs, 1)
	assert.NoError(t, pub.errs[0])
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, payload any) error {
	return m.Called(ctx, payload).Error(0)
}

func TestService_PublishesCartUpdated(t *testing.T) {
	t.Parallel()

	st := memstore.New()
	products := catalog.NewService(st, nil)
	p, err := products.Create(context.Background(), catalog.Input{Name: "Delivery", Price: decimal.RequireFromString("4.50")})
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	customer := uuid.New()
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e cart.CartUpdated) bool {
		return e.CustomerID == customer && e.Version == 1 && e.ItemCount == 2 &&
			e.Total.Equal(decimal.NewFromInt(9)) && e.Timestamp.Equal(now)
	})).Return(nil).Once()

	svc := cart.NewService(st, products, pub, cart.WithClock(func() time.Time { return now }))
	_, err = svc.AddItem(context.Background(), customer, p.ID, 2)
	require.NoError(t, err)

	_, err = svc.RemoveItem(context.Background(), customer, uuid.New())
	require.NoError(t, err)

	pub.AssertExpectations(t)
}
