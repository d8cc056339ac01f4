package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session binds an opaque token to one authenticated subject.
// The subject (UserID and Data) is fixed at creation; Touch only moves the
// expiry window forward.
type Session[Data any] struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	UserID    uuid.UUID `json:"user_id"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Data      Data      `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta describes the client a session is created for.
type Meta struct {
	IP        string
	UserAgent string
}

// New creates a session for userID expiring ttl after now.
func New[Data any](userID uuid.UUID, data Data, meta Meta, ttl time.Duration, now time.Time) (Session[Data], error) {
	if userID == uuid.Nil {
		return Session[Data]{}, ErrMissingSubject
	}

	token, err := generateToken()
	if err != nil {
		return Session[Data]{}, errors.Join(ErrTokenGeneration, err)
	}

	return Session[Data]{
		ID:        uuid.New(),
		Token:     token,
		UserID:    userID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Data:      data,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Touch records activity at now and extends the expiry to now+ttl.
// It is throttled by interval and never shortens the expiry.
// It reports whether the session changed and must be saved.
func (s *Session[Data]) Touch(now time.Time, ttl, interval time.Duration) bool {
	if now.Sub(s.UpdatedAt) < interval {
		return false
	}

	s.UpdatedAt = now
	if next := now.Add(ttl); next.After(s.ExpiresAt) {
		s.ExpiresAt = next
	}
	return true
}

// IsExpired reports whether the session is no longer valid at now.
func (s Session[Data]) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime at now, never negative.
func (s Session[Data]) TTL(now time.Time) time.Duration {
	return max(s.ExpiresAt.Sub(now), 0)
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
