package identity_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newResolver(t *testing.T, store session.Store[identity.SessionData]) (*identity.Resolver, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}
	mgr := session.NewManager[identity.SessionData](store,
		session.WithTTL(time.Hour),
		session.WithTouchInterval(time.Minute),
		session.WithClock(clk.Now),
	)
	return identity.NewResolver(mgr, nil), clk
}

func TestPrincipalRequirements(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name          string
		principal     identity.Principal
		customerError error
		adminError    error
	}{
		{"anonymous", identity.Anonymous, identity.ErrUnauthenticated, identity.ErrUnauthenticated},
		{"customer", identity.Customer(id), nil, identity.ErrForbidden},
		{"admin", identity.Admin(id), identity.ErrForbidden, nil},
		{"kind without id", identity.Principal{Kind: identity.KindCustomer}, identity.ErrUnauthenticated, identity.ErrUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.principal.RequireCustomer(), tt.customerError)
			assert.ErrorIs(t, tt.principal.RequireAdmin(), tt.adminError)
			if tt.customerError == nil {
				assert.NoError(t, tt.principal.RequireCustomer())
			}
			if tt.adminError == nil {
				assert.NoError(t, tt.principal.RequireAdmin())
			}
		})
	}
}

func TestPrincipalString(t *testing.T) {
	t.Parallel()

	id := uuid.MustParse("7d444840-9dc0-11d1-b245-5ffdce74fad2")
	assert.Equal(t, "anonymous", identity.Anonymous.String())
	assert.Equal(t, "customer:7d444840-9dc0-11d1-b245-5ffdce74fad2", identity.Customer(id).String())
	assert.Equal(t, "admin:7d444840-9dc0-11d1-b245-5ffdce74fad2", identity.Admin(id).String())
}

func TestResolver_LoginResolveLogout(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver, _ := newResolver(t, session.NewMemoryStore[identity.SessionData]())
	customerID := uuid.New()

	sess, err := resolver.Login(ctx, identity.KindCustomer, customerID, session.Meta{IP: "10.0.0.1"})
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)

	p, _, err := resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.KindCustomer, p.Kind)
	assert.Equal(t, customerID, p.ID)
	assert.Equal(t, sess.ID, p.SessionID)

	require.NoError(t, resolver.Logout(ctx, sess.Token))
	_, _, err = resolver.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	assert.NoError(t, resolver.Logout(ctx, sess.Token), "second logout is a no-op")
}

func TestResolver_RejectsMissingUnknownAndExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver, clk := newResolver(t, session.NewMemoryStore[identity.SessionData]())
	sess, err := resolver.Login(ctx, identity.KindAdmin, uuid.New(), session.Meta{})
	require.NoError(t, err)

	for _, token := range []string{"", "unknown-token"} {
		_, _, err := resolver.Resolve(ctx, token)
		assert.ErrorIs(t, err, identity.ErrUnauthenticated, "token %q", token)
	}

	clk.Advance(time.Hour)
	_, _, err = resolver.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)
}

func TestResolver_SlidesExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	resolver, clk := newResolver(t, session.NewMemoryStore[identity.SessionData]())
	sess, err := resolver.Login(ctx, identity.KindCustomer, uuid.New(), session.Meta{})
	require.NoError(t, err)

	clk.Advance(45 * time.Minute)
	_, touched, err := resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, touched.ExpiresAt.After(sess.ExpiresAt))

	clk.Advance(45 * time.Minute)
	p, _, err := resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err, "touched session outlives the original expiry")
	assert.Equal(t, sess.UserID, p.ID)
}

func TestResolver_LoginRejectsInvalidKind(t *testing.T) {
	t.Parallel()

	resolver, _ := newResolver(t, session.NewMemoryStore[identity.SessionData]())
	_, err := resolver.Login(context.Background(), identity.Kind("guest"), uuid.New(), session.Meta{})
	assert.ErrorIs(t, err, identity.ErrInvalidKind)
}

// flakyStore fails the first token lookup with a transient error.
type flakyStore struct {
	session.Store[identity.SessionData]
	mu     sync.Mutex
	failed bool
}

func (s *flakyStore) GetByToken(ctx context.Context, token string) (*session.Session[identity.SessionData], error) {
	s.mu.Lock()
	fail := !s.failed
	s.failed = true
	s.mu.Unlock()
	if fail {
		return nil, retry.Transient(errors.New("connection reset"))
	}
	return s.Store.GetByToken(ctx, token)
}

func TestResolver_RetriesTransientLookupOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &flakyStore{Store: session.NewMemoryStore[identity.SessionData]()}
	resolver, _ := newResolver(t, store)

	sess, err := resolver.Login(ctx, identity.KindCustomer, uuid.New(), session.Meta{})
	require.NoError(t, err)

	p, _, err := resolver.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, p.IsCustomer())
}

// logoutDuringLookup deletes the session right after handing it out, as a
// logout from another device would.
type logoutDuringLookup struct {
	session.Store[identity.SessionData]
}

func (s logoutDuringLookup) GetByToken(ctx context.Context, token string) (*session.Session[identity.SessionData], error) {
	sess, err := s.Store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Delete(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

func TestResolver_LogoutBeatsTouch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := session.NewMemoryStore[identity.SessionData]()
	resolver, clk := newResolver(t, logoutDuringLookup{Store: inner})

	sess, err := resolver.Login(ctx, identity.KindCustomer, uuid.New(), session.Meta{})
	require.NoError(t, err)

	clk.Advance(5 * time.Minute)
	_, _, err = resolver.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, identity.ErrUnauthenticated)

	_, err = inner.GetByID(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound, "session stays logged out")
}
