// Package memstore keeps every repository in process memory.
// It backs single-instance development runs and tests; one mutex guards all
// collections, so checkout commits are atomic.
package memstore

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/internal/store"
)

type accountKey struct {
	kind  identity.Kind
	email string
}

// Store keeps every repository behind a single lock. It is meant for
// development and tests; cart and order writers still serialize per
// aggregate through keylock and version checks.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]account.Account
	emails   map[accountKey]uuid.UUID
	products map[uuid.UUID]catalog.Product
	carts    map[uuid.UUID]cart.Cart
	orders   map[uuid.UUID]order.Order
}

func New() *Store {
	return &Store{
		accounts: make(map[uuid.UUID]account.Account),
		emails:   make(map[accountKey]uuid.UUID),
		products: make(map[uuid.UUID]catalog.Product),
		carts:    make(map[uuid.UUID]cart.Cart),
		orders:   make(map[uuid.UUID]order.Order),
	}
}

func (s *Store) CreateAccount(_ context.Context, acc account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountKey{acc.Kind, acc.Email}
	if _, ok := s.emails[key]; ok {
		return store.ErrDuplicate
	}
	if _, ok := s.accounts[acc.ID]; ok {
		return store.ErrDuplicate
	}
	acc.PasswordHash = slices.Clone(acc.PasswordHash)
	s.accounts[acc.ID] = acc
	s.emails[key] = acc.ID
	return nil
}

func (s *Store) AccountByEmail(_ context.Context, kind identity.Kind, email string) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[accountKey{kind, email}]
	if !ok {
		return account.Account{}, store.ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *Store) AccountByID(_ context.Context, kind identity.Kind, id uuid.UUID) (account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok || acc.Kind != kind {
		return account.Account{}, store.ErrNotFound
	}
	return acc, nil
}

func (s *Store) UpdatePassword(_ context.Context, kind identity.Kind, id uuid.UUID, hash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok || acc.Kind != kind {
		return store.ErrNotFound
	}
	acc.PasswordHash = slices.Clone(hash)
	s.accounts[id] = acc
	return nil
}

func (s *Store) ListProducts(_ context.Context, f catalog.Filter) ([]catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Active || f.IncludeInactive {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b catalog.Product) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareUUID(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) ProductByID(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) CreateProduct(_ context.Context, p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return store.ErrDuplicate
	}
	s.products[p.ID] = p
	return nil
}

func (s *Store) UpdateProduct(_ context.Context, p catalog.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	s.products[p.ID] = p
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) CartByCustomer(_ context.Context, customerID uuid.UUID) (cart.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[customerID]
	if !ok {
		return cart.Cart{CustomerID: customerID, Items: []cart.Item{}}, nil
	}
	return c.Clone(), nil
}

func (s *Store) SaveCart(_ context.Context, c cart.Cart, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.carts[c.CustomerID].Version != expectedVersion {
		return store.ErrConflict
	}
	s.carts[c.CustomerID] = c.Clone()
	return nil
}

func (s *Store) CommitCheckout(_ context.Context, o order.Order, cartVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.carts[o.CustomerID]
	if c.Version != cartVersion {
		return store.ErrConflict
	}
	if _, ok := s.orders[o.ID]; ok {
		return store.ErrDuplicate
	}
	s.orders[o.ID] = cloneOrder(o)
	s.carts[o.CustomerID] = cart.Cart{
		CustomerID: o.CustomerID,
		Items:      []cart.Item{},
		Version:    c.Version + 1,
		UpdatedAt:  o.CreatedAt,
	}
	return nil
}

func (s *Store) OrderByID(_ context.Context, id uuid.UUID) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, store.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (s *Store) ListOrders(_ context.Context, f order.Filter) ([]order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]order.Order, 0)
	for _, o := range s.orders {
		if f.CustomerID != uuid.Nil && o.CustomerID != f.CustomerID {
			continue
		}
		if f.State != "" && o.State != f.State {
			continue
		}
		out = append(out, o)
	}
	slices.SortFunc(out, func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareUUID(a.ID, b.ID)
	})

	if f.Offset >= len(out) {
		return []order.Order{}, nil
	}
	out = out[f.Offset:]
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	for i := range out {
		out[i] = cloneOrder(out[i])
	}
	return out, nil
}

func (s *Store) TransitionOrder(_ context.Context, id uuid.UUID, from order.State, attempt order.PaymentAttempt) (order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, store.ErrNotFound
	}
	if o.State != from {
		return order.Order{}, store.ErrConflict
	}
	o = cloneOrder(o)
	o.State = attempt.To
	o.UpdatedAt = attempt.At
	o.Attempts = append(o.Attempts, attempt)
	s.orders[id] = o
	return cloneOrder(o), nil
}

func (s *Store) DailyOrderTotals(_ context.Context, from, to time.Time, states []order.State) ([]stats.Row, error) {
	type key struct {
		day   time.Time
		state order.State
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := make(map[key]*stats.Row)
	var keys []key
	for _, o := range s.orders {
		if o.UpdatedAt.Before(from) || !o.UpdatedAt.Before(to) || !slices.Contains(states, o.State) {
			continue
		}
		k := key{stats.Day(o.UpdatedAt), o.State}
		row, ok := groups[k]
		if !ok {
			row = &stats.Row{Day: k.day, State: k.state, Amount: decimal.Zero}
			groups[k] = row
			keys = append(keys, k)
		}
		row.Count++
		row.Amount = row.Amount.Add(o.Total)
	}

	rows := make([]stats.Row, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, *groups[k])
	}
	return rows, nil
}

func cloneOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	o.Attempts = slices.Clone(o.Attempts)
	return o
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}

var (
	_ account.Repository = (*Store)(nil)
	_ catalog.Repository = (*Store)(nil)
	_ cart.Repository    = (*Store)(nil)
	_ order.Repository   = (*Store)(nil)
	_ stats.Repository   = (*Store)(nil)
)
