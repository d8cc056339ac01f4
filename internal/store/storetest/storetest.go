// Package storetest holds the behaviour every repository implementation must
// share. Backends call Run from their own tests.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/internal/store"
)

// Repositories is the full set a backend provides.
type Repositories interface {
	account.Repository
	catalog.Repository
	cart.Repository
	order.Repository
	stats.Repository
}

// base is millisecond aligned so backends with coarser clocks round-trip it.
var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// Run exercises repos returned by open. Each subtest gets a fresh set.
func Run(t *testing.T, open func(t *testing.T) Repositories) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, open(t)) })
	t.Run("products", func(t *testing.T) { testProducts(t, open(t)) })
	t.Run("carts", func(t *testing.T) { testCarts(t, open(t)) })
	t.Run("checkout", func(t *testing.T) { testCheckout(t, open(t)) })
	t.Run("transitions", func(t *testing.T) { testTransitions(t, open(t)) })
	t.Run("list orders", func(t *testing.T) { testListOrders(t, open(t)) })
	t.Run("daily totals", func(t *testing.T) { testDailyTotals(t, open(t)) })
}

func testAccounts(t *testing.T, repo Repositories) {
	ctx := context.Background()
	acc := account.Account{
		ID:           uuid.New(),
		Kind:         identity.KindCustomer,
		Email:        "frank@example.com",
		Name:         "Frank",
		PasswordHash: []byte("hash-1"),
		CreatedAt:    base,
	}
	require.NoError(t, repo.CreateAccount(ctx, acc))

	dup := acc
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.CreateAccount(ctx, dup), store.ErrDuplicate)

	admin := dup
	admin.Kind = identity.KindAdmin
	require.NoError(t, repo.CreateAccount(ctx, admin), "same email in another domain")

	got, err := repo.AccountByEmail(ctx, identity.KindCustomer, acc.Email)
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, acc.PasswordHash, got.PasswordHash)
	assert.True(t, acc.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.AccountByID(ctx, identity.KindAdmin, acc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, repo.UpdatePassword(ctx, identity.KindCustomer, acc.ID, []byte("hash-2")))
	got, err = repo.AccountByID(ctx, identity.KindCustomer, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("hash-2"), got.PasswordHash)

	assert.ErrorIs(t, repo.UpdatePassword(ctx, identity.KindCustomer, uuid.New(), nil), store.ErrNotFound)
}

func testProducts(t *testing.T, repo Repositories) {
	ctx := context.Background()
	active := catalog.Product{
		ID: uuid.New(), Name: "Plumbing", Price: decimal.RequireFromString("99.95"),
		Active: true, CreatedAt: base, UpdatedAt: base,
	}
	hidden := catalog.Product{
		ID: uuid.New(), Name: "Roofing", Price: decimal.RequireFromString("500"),
		Active: false, CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute),
	}
	require.NoError(t, repo.CreateProduct(ctx, active))
	require.NoError(t, repo.CreateProduct(ctx, hidden))

	got, err := repo.ProductByID(ctx, active.ID)
	require.NoError(t, err)
	assert.True(t, active.Price.Equal(got.Price))
	assert.Equal(t, active.Name, got.Name)

	list, err := repo.ListProducts(ctx, catalog.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)

	list, err = repo.ListProducts(ctx, catalog.Filter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	hidden.Active = true
	hidden.Price = decimal.RequireFromString("450.10")
	require.NoError(t, repo.UpdateProduct(ctx, hidden))
	got, err = repo.ProductByID(ctx, hidden.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.True(t, hidden.Price.Equal(got.Price))

	require.NoError(t, repo.DeleteProduct(ctx, hidden.ID))
	_, err = repo.ProductByID(ctx, hidden.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, hidden.ID), store.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateProduct(ctx, hidden), store.ErrNotFound)
}

func item(name, price string, qty int) cart.Item {
	return cart.Item{ProductID: uuid.New(), Name: name, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func testCarts(t *testing.T, repo Repositories) {
	ctx := context.Background()
	customer := uuid.New()

	empty, err := repo.CartByCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Zero(t, empty.Version)
	assert.Empty(t, empty.Items)

	c := cart.Cart{CustomerID: customer, Items: []cart.Item{item("Ironing", "7.50", 2)}, Version: 1, UpdatedAt: base}
	require.NoError(t, repo.SaveCart(ctx, c, 0))
	assert.ErrorIs(t, repo.SaveCart(ctx, c, 0), store.ErrConflict, "second first-write loses")

	c.Items = append(c.Items, item("Folding", "2", 1))
	c.Version = 2
	require.NoError(t, repo.SaveCart(ctx, c, 1))

	stale := c
	stale.Version = 2
	assert.ErrorIs(t, repo.SaveCart(ctx, stale, 1), store.ErrConflict)

	got, err := repo.CartByCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Ironing", got.Items[0].Name)
	assert.True(t, decimal.RequireFromString("17").Equal(got.Total()))

	t.Run("concurrent writers, one winner", func(t *testing.T) {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				next := got.Clone()
				next.Version = 3
				if repo.SaveCart(ctx, next, 2) == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, wins)
	})
}

func newOrder(customer uuid.UUID, at time.Time, total string) order.Order {
	it := item("Service", total, 1)
	return order.Order{
		ID:         uuid.New(),
		CustomerID: customer,
		Items:      []cart.Item{it},
		Total:      it.Subtotal(),
		State:      order.StatePending,
		Attempts:   []order.PaymentAttempt{},
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

// seedCart stores a one-line cart on top of whatever the customer has.
func seedCart(t *testing.T, repo Repositories, customer uuid.UUID) cart.Cart {
	t.Helper()
	ctx := context.Background()
	current, err := repo.CartByCustomer(ctx, customer)
	require.NoError(t, err)
	c := cart.Cart{
		CustomerID: customer,
		Items:      []cart.Item{item("Service", "10", 1)},
		Version:    current.Version + 1,
		UpdatedAt:  base,
	}
	require.NoError(t, repo.SaveCart(ctx, c, current.Version))
	return c
}

func testCheckout(t *testing.T, repo Repositories) {
	ctx := context.Background()
	customer := uuid.New()
	c := seedCart(t, repo, customer)

	stale := newOrder(customer, base, "10")
	assert.ErrorIs(t, repo.CommitCheckout(ctx, stale, c.Version-1), store.ErrConflict)
	_, err := repo.OrderByID(ctx, stale.ID)
	assert.ErrorIs(t, err, store.ErrNotFound, "failed commit inserts nothing")

	o := newOrder(customer, base, "10")
	require.NoError(t, repo.CommitCheckout(ctx, o, c.Version))

	got, err := repo.OrderByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatePending, got.State)
	assert.True(t, o.Total.Equal(got.Total))
	require.Len(t, got.Items, 1)

	after, err := repo.CartByCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, after.Items)
	assert.Greater(t, after.Version, c.Version, "emptied cart gets a new version")

	assert.ErrorIs(t, repo.CommitCheckout(ctx, newOrder(customer, base, "10"), c.Version), store.ErrConflict)
}

func testTransitions(t *testing.T, repo Repositories) {
	ctx := context.Background()
	customer := uuid.New()
	c := seedCart(t, repo, customer)
	o := newOrder(customer, base, "10")
	require.NoError(t, repo.CommitCheckout(ctx, o, c.Version))

	at := base.Add(time.Hour)
	pa := order.PaymentAttempt{
		ID: uuid.New(), Outcome: order.OutcomeCaptured,
		From: order.StatePending, To: order.StateCaptured, Reference: "ref-1", At: at,
	}
	updated, err := repo.TransitionOrder(ctx, o.ID, order.StatePending, pa)
	require.NoError(t, err)
	assert.Equal(t, order.StateCaptured, updated.State)
	assert.True(t, at.Equal(updated.UpdatedAt))
	require.Len(t, updated.Attempts, 1)
	assert.Equal(t, pa.ID, updated.Attempts[0].ID)
	assert.Equal(t, "ref-1", updated.Attempts[0].Reference)

	_, err = repo.TransitionOrder(ctx, o.ID, order.StatePending, pa)
	assert.ErrorIs(t, err, store.ErrConflict)
	_, err = repo.TransitionOrder(ctx, uuid.New(), order.StatePending, pa)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// checkout commits a pending order for customer created at.
func checkout(t *testing.T, repo Repositories, customer uuid.UUID, at time.Time, total string) order.Order {
	t.Helper()
	c := seedCart(t, repo, customer)
	o := newOrder(customer, at, total)
	require.NoError(t, repo.CommitCheckout(context.Background(), o, c.Version))
	return o
}

func move(t *testing.T, repo Repositories, o order.Order, outcome order.Outcome, to order.State, at time.Time) {
	t.Helper()
	pa := order.PaymentAttempt{ID: uuid.New(), Outcome: outcome, From: o.State, To: to, At: at}
	_, err := repo.TransitionOrder(context.Background(), o.ID, o.State, pa)
	require.NoError(t, err)
}

func testListOrders(t *testing.T, repo Repositories) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	var mine []order.Order
	for i := range 3 {
		mine = append(mine, checkout(t, repo, alice, base.Add(time.Duration(i)*time.Minute), "5"))
	}
	theirs := checkout(t, repo, bob, base.Add(10*time.Minute), "7")
	move(t, repo, mine[0], order.OutcomeDeclined, order.StateFailed, base.Add(time.Hour))

	list, err := repo.ListOrders(ctx, order.Filter{CustomerID: alice, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, mine[2].ID, list[0].ID, "newest first")
	assert.Equal(t, mine[0].ID, list[2].ID)

	page, err := repo.ListOrders(ctx, order.Filter{CustomerID: alice, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, mine[1].ID, page[0].ID)

	past, err := repo.ListOrders(ctx, order.Filter{CustomerID: alice, Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, past)

	all, err := repo.ListOrders(ctx, order.Filter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, theirs.ID, all[0].ID)

	failed, err := repo.ListOrders(ctx, order.Filter{State: order.StateFailed, Limit: 10})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, mine[0].ID, failed[0].ID)
}

func testDailyTotals(t *testing.T, repo Repositories) {
	ctx := context.Background()
	customer := uuid.New()
	day1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	a := checkout(t, repo, customer, day1, "10.25")
	b := checkout(t, repo, customer, day1, "4.75")
	c := checkout(t, repo, customer, day1, "100")
	d := checkout(t, repo, customer, day1, "1")
	checkout(t, repo, customer, day1, "999") // stays pending

	move(t, repo, a, order.OutcomeCaptured, order.StateCaptured, day1.Add(9*time.Hour))
	move(t, repo, b, order.OutcomeCaptured, order.StateCaptured, day1.Add(23*time.Hour+59*time.Minute))
	move(t, repo, c, order.OutcomeDeclined, order.StateFailed, day2.Add(time.Hour))
	move(t, repo, d, order.OutcomeCaptured, order.StateCaptured, day2.AddDate(0, 0, 1))

	rows, err := repo.DailyOrderTotals(ctx, day1, day2.AddDate(0, 0, 1), order.TerminalStates)
	require.NoError(t, err)

	sum := stats.Fold(stats.Range{From: day1, To: day2.AddDate(0, 0, 1)}, rows)
	assert.Equal(t, int64(3), sum.Total.Count, "pending and out-of-range orders are excluded")
	assert.True(t, decimal.RequireFromString("115").Equal(sum.Total.Amount))
	require.Len(t, sum.ByDay, 2)
	assert.True(t, day1.Equal(sum.ByDay[0].Day))
	assert.Equal(t, int64(2), sum.ByDay[0].ByState[order.StateCaptured].Count)
	assert.True(t, decimal.RequireFromString("15").Equal(sum.ByDay[0].ByState[order.StateCaptured].Amount))
	assert.True(t, day2.Equal(sum.ByDay[1].Day))
	assert.Equal(t, int64(1), sum.ByDay[1].ByState[order.StateFailed].Count)
}
