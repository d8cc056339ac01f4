// Package account stores customer and admin credentials.
// The two identity domains live in separate collections and never share an email index.
package account

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/internal/identity"
)

// Account is a login-capable identity of one Kind.
type Account struct {
	ID           uuid.UUID     `json:"id"`
	Kind         identity.Kind `json:"kind"`
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	PasswordHash []byte        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Repository persists accounts. CreateAccount returns store.ErrDuplicate when
// the email is already registered in that kind's domain.
type Repository interface {
	CreateAccount(ctx context.Context, acc Account) error
	AccountByEmail(ctx context.Context, kind identity.Kind, email string) (Account, error)
	AccountByID(ctx context.Context, kind identity.Kind, id uuid.UUID) (Account, error)
	UpdatePassword(ctx context.Context, kind identity.Kind, id uuid.UUID, hash []byte) error
}

// NormalizeEmail lowercases and trims an address, returning ErrInvalidEmail
// when it does not parse.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
