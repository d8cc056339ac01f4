// Package catalog manages the products customers put in carts.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrNameRequired    = errors.New("product name is required")
	ErrNameTooLong     = errors.New("product name is too long")
	ErrInvalidPrice    = errors.New("product price must be greater than zero")
	ErrProductInactive = errors.New("product is not available")
)

const MaxNameLength = 200

type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Input carries the writable product fields.
type Input struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Active      *bool           `json:"active,omitempty"`
}

// Validate trims the input and checks it.
func (in *Input) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Name == "":
		return ErrNameRequired
	case utf8.RuneCountInString(in.Name) > MaxNameLength:
		return ErrNameTooLong
	case !in.Price.IsPositive():
		return ErrInvalidPrice
	}
	return nil
}

// Filter narrows List. The zero value lists active products only.
type Filter struct {
	IncludeInactive bool
}

// Repository persists products. Lookups of missing ids return store.ErrNotFound.
type Repository interface {
	ListProducts(ctx context.Context, f Filter) ([]Product, error)
	ProductByID(ctx context.Context, id uuid.UUID) (Product, error)
	CreateProduct(ctx context.Context, p Product) error
	UpdateProduct(ctx context.Context, p Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, payload any) error
}

type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
)

// ProductChanged is published after every admin write.
type ProductChanged struct {
	ProductID uuid.UUID    `json:"product_id"`
	Action    ChangeAction `json:"action"`
	Product   *Product     `json:"product,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}
