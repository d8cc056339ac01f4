// Package cart holds each customer's cart.
//
// Mutations for one customer are serialized in process by a per-key lock and
// across processes by a version-guarded write: a lost race re-reads the cart
// and re-applies the operation. Reads never take the lock.
package cart

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/servicehub/internal/catalog"
)

// MaxLineQuantity caps a single cart line.
const MaxLineQuantity = 1000

var (
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 1000")
	ErrContended       = errors.New("cart is being modified concurrently, try again")
)

// Item is one cart line. Name and UnitPrice are captured when the line is created.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart keeps lines in the order they were first added.
// Version increases by one with every stored change; zero means never stored.
type Cart struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Items      []Item    `json:"items"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c Cart) ItemCount() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) IsEmpty() bool { return len(c.Items) == 0 }

// Clone returns a deep copy so callers cannot alias stored items.
func (c Cart) Clone() Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

func (c *Cart) find(productID uuid.UUID) int {
	return slices.IndexFunc(c.Items, func(it Item) bool { return it.ProductID == productID })
}

// add merges qty into an existing line or appends a new one priced from p.
func (c *Cart) add(p catalog.Product, qty int) error {
	if i := c.find(p.ID); i >= 0 {
		if c.Items[i].Quantity+qty > MaxLineQuantity {
			return ErrInvalidQuantity
		}
		c.Items[i].Quantity += qty
		return nil
	}
	c.Items = append(c.Items, Item{ProductID: p.ID, Name: p.Name, Quantity: qty, UnitPrice: p.Price})
	return nil
}

func (c *Cart) remove(productID uuid.UUID) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	return true
}

// setQuantity reports false when the line is missing or already has qty.
func (c *Cart) setQuantity(productID uuid.UUID, qty int) bool {
	i := c.find(productID)
	if i < 0 {
		return false
	}
	if qty == 0 {
		c.Items = slices.Delete(c.Items, i, i+1)
		return true
	}
	if c.Items[i].Quantity == qty {
		return false
	}
	c.Items[i].Quantity = qty
	return true
}

// Repository persists carts.
//
// CartByCustomer returns an empty cart with Version 0 when none is stored.
// SaveCart stores c only if the stored version still equals expectedVersion
// and fails with store.ErrConflict otherwise.
type Repository interface {
	CartByCustomer(ctx context.Context, customerID uuid.UUID) (Cart, error)
	SaveCart(ctx context.Context, c Cart, expectedVersion int64) error
}

// Products resolves the catalog entries a cart line is priced from.
type Products interface {
	Purchasable(ctx context.Context, id uuid.UUID) (catalog.Product, error)
}

type Publisher interface {
	Publish(ctx context.Context, payload any) error
}

// CartUpdated is published after every stored change, for the owner's other tabs.
type CartUpdated struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	Version    int64           `json:"version"`
	ItemCount  int             `json:"item_count"`
	Total      decimal.Decimal `json:"total"`
	Timestamp  time.Time       `json:"timestamp"`
}
