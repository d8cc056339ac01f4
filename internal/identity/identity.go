package identity

import (
	"errors"

	"github.com/google/uuid"
)

// Kind names an identity domain. Customers and admins never share accounts.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindAdmin    Kind = "admin"
)

func (k Kind) Valid() bool {
	return k == KindCustomer || k == KindAdmin
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed for this identity")
	ErrInvalidKind     = errors.New("invalid identity kind")
)

// SessionData is the application payload stored in every session.
type SessionData struct {
	Kind Kind `json:"kind" bson:"kind"`
}

// Principal is the resolved caller: a customer, an admin, or nobody.
// The zero value is the unauthenticated principal.
type Principal struct {
	Kind      Kind
	ID        uuid.UUID
	SessionID uuid.UUID
}

// Anonymous is the unauthenticated principal.
var Anonymous = Principal{}

func Customer(id uuid.UUID) Principal { return Principal{Kind: KindCustomer, ID: id} }
func Admin(id uuid.UUID) Principal    { return Principal{Kind: KindAdmin, ID: id} }

func (p Principal) IsAuthenticated() bool { return p.Kind.Valid() && p.ID != uuid.Nil }
func (p Principal) IsCustomer() bool      { return p.IsAuthenticated() && p.Kind == KindCustomer }
func (p Principal) IsAdmin() bool         { return p.IsAuthenticated() && p.Kind == KindAdmin }

// RequireCustomer fails with ErrUnauthenticated for nobody and ErrForbidden for admins.
func (p Principal) RequireCustomer() error {
	switch {
	case !p.IsAuthenticated():
		return ErrUnauthenticated
	case !p.IsCustomer():
		return ErrForbidden
	}
	return nil
}

// RequireAdmin fails with ErrUnauthenticated for nobody and ErrForbidden for customers.
func (p Principal) RequireAdmin() error {
	switch {
	case !p.IsAuthenticated():
		return ErrUnauthenticated
	case !p.IsAdmin():
		return ErrForbidden
	}
	return nil
}

// String is the registry key used by realtime fan-out.
func (p Principal) String() string {
	if !p.IsAuthenticated() {
		return "anonymous"
	}
	return string(p.Kind) + ":" + p.ID.String()
}
