package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

// Sessions is the session manager used by Resolver.
type Sessions = session.Manager[SessionData]

// Resolver turns session tokens into principals.
type Resolver struct {
	sessions *Sessions
	logger   *slog.Logger
}

func NewResolver(sessions *Sessions, log *slog.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{sessions: sessions, logger: log.With(logger.Component("identity"))}
}

// Resolve returns the principal bound to token and slides its session expiry.
// Missing, unknown and expired tokens all fail with ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, token string) (Principal, session.Session[SessionData], error) {
	var sess session.Session[SessionData]
	err := retry.Once(ctx, func(ctx context.Context) error {
		var err error
		sess, err = r.sessions.GetByToken(ctx, token)
		return err
	})
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		return Anonymous, session.Session[SessionData]{}, ErrUnauthenticated
	case err != nil:
		return Anonymous, session.Session[SessionData]{}, fmt.Errorf("resolve session: %w", err)
	}

	if !sess.Data.Kind.Valid() {
		r.logger.WarnContext(ctx, "session without identity kind", logger.SessionID(sess.ID.String()))
		return Anonymous, session.Session[SessionData]{}, ErrUnauthenticated
	}

	touched, err := r.sessions.Touch(ctx, sess)
	if errors.Is(err, session.ErrNotFound) {
		// Logged out while this request was in flight.
		return Anonymous, session.Session[SessionData]{}, ErrUnauthenticated
	}
	if err != nil {
		// The request is still authenticated; the next touch will retry.
		r.logger.WarnContext(ctx, "failed to refresh session", logger.SessionID(sess.ID.String()), logger.Error(err))
		touched = sess
	}

	return Principal{Kind: touched.Data.Kind, ID: touched.UserID, SessionID: touched.ID}, touched, nil
}

// Login starts a session for subjectID in the given identity domain.
func (r *Resolver) Login(ctx context.Context, kind Kind, subjectID uuid.UUID, meta session.Meta) (session.Session[SessionData], error) {
	if !kind.Valid() {
		return session.Session[SessionData]{}, ErrInvalidKind
	}
	sess, err := r.sessions.Create(ctx, subjectID, SessionData{Kind: kind}, meta)
	if err != nil {
		return session.Session[SessionData]{}, fmt.Errorf("create session: %w", err)
	}
	r.logger.InfoContext(ctx, "session created",
		logger.UserID(subjectID.String()),
		logger.SessionID(sess.ID.String()),
		slog.String("kind", string(kind)))
	return sess, nil
}

// Logout destroys the session behind token. Unknown tokens are ignored.
func (r *Resolver) Logout(ctx context.Context, token string) error {
	sess, err := r.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			return nil
		}
		return fmt.Errorf("logout: %w", err)
	}
	return r.sessions.Delete(ctx, sess.ID)
}
