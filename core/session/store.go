package session

import (
	"context"

	"github.com/google/uuid"
)

// Store persists sessions. Implementations return ErrNotFound for unknown
// sessions and must be safe for concurrent use by many processes.
type Store[Data any] interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Session[Data], error)
	GetByToken(ctx context.Context, token string) (*Session[Data], error)
	// Save creates or replaces a session.
	Save(ctx context.Context, session *Session[Data]) error
	// Update replaces a session that still exists and returns ErrNotFound
	// once it has been deleted. It never recreates a session.
	Update(ctx context.Context, session *Session[Data]) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteExpired removes expired sessions and reports how many were removed.
	// Stores with native TTL may return 0.
	DeleteExpired(ctx context.Context) (int64, error)
}
