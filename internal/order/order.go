// Package order turns carts into orders and drives their payment state machine.
//
//	pending ──authorized──▶ authorized ──captured──▶ captured ──refund──▶ refunded
//	   │ └───────────captured──────────────────────────▲
//	   └──declined──▶ failed ◀──declined── authorized
//
// A repeated signal is a no-op. Every other pair outside the diagram fails with
// an InvalidTransitionError. Transitions are stored as conditional updates on
// the current state, so concurrent signals for one order are linearized.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/servicehub/internal/cart"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrEmptyCart = errors.New("cart is empty")
	ErrContended = errors.New("order is being modified concurrently, try again")
	// ErrOutcomeNotAllowed is returned when a customer reports an outcome only
	// the payment provider may report.
	ErrOutcomeNotAllowed = errors.New("payment outcome must come from the payment provider")
)

type Order struct {
	ID         uuid.UUID        `json:"id"`
	CustomerID uuid.UUID        `json:"customer_id"`
	Items      []cart.Item      `json:"items"`
	Total      decimal.Decimal  `json:"total"`
	State      State            `json:"state"`
	Attempts   []PaymentAttempt `json:"attempts"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// PaymentAttempt is the audit record of one accepted transition.
type PaymentAttempt struct {
	ID        uuid.UUID `json:"id"`
	Outcome   Outcome   `json:"outcome"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	Reference string    `json:"reference,omitempty"`
	At        time.Time `json:"at"`
}

func (o Order) hasAttempt(id uuid.UUID) bool {
	for _, a := range o.Attempts {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Filter narrows ListOrders. Zero fields match everything.
type Filter struct {
	CustomerID uuid.UUID
	State      State
	Limit      int
	Offset     int
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

func (f Filter) normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	f.Limit = min(f.Limit, MaxLimit)
	f.Offset = max(f.Offset, 0)
	return f
}

// Repository persists orders.
type Repository interface {
	// CommitCheckout inserts o and empties the customer's cart in one atomic
	// step. It fails with store.ErrConflict when the cart version moved.
	CommitCheckout(ctx context.Context, o Order, cartVersion int64) error
	OrderByID(ctx context.Context, id uuid.UUID) (Order, error)
	// ListOrders returns orders newest first.
	ListOrders(ctx context.Context, f Filter) ([]Order, error)
	// TransitionOrder applies attempt only if the order is still in state
	// from, failing with store.ErrConflict otherwise.
	TransitionOrder(ctx context.Context, id uuid.UUID, from State, attempt PaymentAttempt) (Order, error)
}

// Carts reads committed carts.
type Carts interface {
	CartByCustomer(ctx context.Context, customerID uuid.UUID) (cart.Cart, error)
}

type Publisher interface {
	Publish(ctx context.Context, payload any) error
}

// Result is returned by state transitions. Changed is false for repeated signals.
type Result struct {
	Order   Order `json:"order"`
	Changed bool  `json:"changed"`
}
