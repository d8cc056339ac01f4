package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/logger"
)

// Manager handles session lifecycle: creation on login, validated lookup,
// sliding refresh and removal.
type Manager[Data any] struct {
	store         Store[Data]
	ttl           time.Duration
	touchInterval time.Duration
	now           func() time.Time
}

// NewManager creates a session manager over store.
func NewManager[Data any](store Store[Data], opts ...Option) *Manager[Data] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Manager[Data]{
		store:         store,
		ttl:           o.ttl,
		touchInterval: o.touchInterval,
		now:           o.now,
	}
}

// TTL returns the sliding expiration window.
func (m *Manager[Data]) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for userID and persists it.
func (m *Manager[Data]) Create(ctx context.Context, userID uuid.UUID, data Data, meta Meta) (Session[Data], error) {
	sess, err := New(userID, data, meta, m.ttl, m.now())
	if err != nil {
		return Session[Data]{}, err
	}
	if err := m.store.Save(ctx, &sess); err != nil {
		return Session[Data]{}, errors.Join(ErrSaveSession, err)
	}
	return sess, nil
}

// GetByToken retrieves a session by token and validates expiration.
func (m *Manager[Data]) GetByToken(ctx context.Context, token string) (Session[Data], error) {
	if token == "" {
		return Session[Data]{}, ErrNotFound
	}
	sess, err := m.store.GetByToken(ctx, token)
	if err != nil {
		return Session[Data]{}, err
	}
	if sess.IsExpired(m.now()) {
		return Session[Data]{}, ErrExpired
	}
	return *sess, nil
}

// GetByID retrieves a session by ID and validates expiration.
func (m *Manager[Data]) GetByID(ctx context.Context, id uuid.UUID) (Session[Data], error) {
	sess, err := m.store.GetByID(ctx, id)
	if err != nil {
		return Session[Data]{}, err
	}
	if sess.IsExpired(m.now()) {
		return Session[Data]{}, ErrExpired
	}
	return *sess, nil
}

// Touch extends the session's expiry and saves it when the touch interval has passed.
// A session deleted in the meantime stays deleted and ErrNotFound is returned.
func (m *Manager[Data]) Touch(ctx context.Context, sess Session[Data]) (Session[Data], error) {
	if !sess.Touch(m.now(), m.ttl, m.touchInterval) {
		return sess, nil
	}
	if err := m.store.Update(ctx, &sess); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session[Data]{}, ErrNotFound
		}
		return sess, errors.Join(ErrSaveSession, err)
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (m *Manager[Data]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Join(ErrDeleteSession, err)
	}
	return nil
}

// Cleanup removes expired sessions from the store.
func (m *Manager[Data]) Cleanup(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx)
}

// RunCleanup returns a function for errgroup.Go that calls Cleanup every interval until ctx is done.
func (m *Manager[Data]) RunCleanup(ctx context.Context, interval time.Duration, log *slog.Logger) func() error {
	return func() error {
		if interval <= 0 {
			<-ctx.Done()
			return nil
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := m.Cleanup(ctx)
				if err != nil {
					log.WarnContext(ctx, "session cleanup failed", logger.Error(err))
					continue
				}
				if n > 0 {
					log.DebugContext(ctx, "expired sessions removed", logger.Count("removed", int(n)))
				}
			}
		}
	}
}
