package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/core/session/redisstore"
)

type data struct {
	Kind string `json:"kind"`
}

func setup(t *testing.T) (*redisstore.Store[data], *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return redisstore.New[data](client), mr
}

func newSession(t *testing.T, ttl time.Duration) session.Session[data] {
	t.Helper()
	s, err := session.New(uuid.New(), data{Kind: "admin"}, session.Meta{IP: "127.0.0.1"}, ttl, time.Now())
	require.NoError(t, err)
	return s
}

func TestStore_SaveAndGet(t *testing.T) {
	t.Parallel()
	store, mr := setup(t)
	ctx := context.Background()
	sess := newSession(t, time.Hour)

	require.NoError(t, store.Save(ctx, &sess))

	byToken, err := store.GetByToken(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, byToken.ID)
	assert.Equal(t, "admin", byToken.Data.Kind)
	assert.Equal(t, sess.UserID, byToken.UserID)

	byID, err := store.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Token, byID.Token)

	assert.True(t, mr.Exists("session:token:"+sess.Token))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:token:"+sess.Token).Seconds(), 5)
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()
	store, _ := setup(t)
	ctx := context.Background()

	_, err := store.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, uuid.New()), session.ErrNotFound)
}

func TestStore_KeysExpire(t *testing.T) {
	t.Parallel()
	store, mr := setup(t)
	ctx := context.Background()
	sess := newSession(t, time.Minute)
	require.NoError(t, store.Save(ctx, &sess))

	mr.FastForward(2 * time.Minute)

	_, err := store.GetByToken(ctx, sess.Token)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	t.Parallel()
	store, mr := setup(t)
	ctx := context.Background()
	sess := newSession(t, time.Hour)
	require.NoError(t, store.Save(ctx, &sess))

	require.NoError(t, store.Delete(ctx, sess.ID))
	assert.False(t, mr.Exists("session:token:"+sess.Token))
	assert.False(t, mr.Exists("session:id:"+sess.ID.String()))
}

func TestStore_UpdateAfterDelete(t *testing.T) {
	t.Parallel()
	store, mr := setup(t)
	ctx := context.Background()
	sess := newSession(t, time.Hour)
	require.NoError(t, store.Save(ctx, &sess))

	got, err := store.GetByToken(ctx, sess.Token)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, sess.ID))

	got.ExpiresAt = got.ExpiresAt.Add(time.Hour)
	assert.ErrorIs(t, store.Update(ctx, got), session.ErrNotFound)
	assert.False(t, mr.Exists("session:token:"+sess.Token))
	assert.False(t, mr.Exists("session:id:"+sess.ID.String()))
}

func TestStore_UpdateExtendsTTL(t *testing.T) {
	t.Parallel()
	store, mr := setup(t)
	ctx := context.Background()
	sess := newSession(t, time.Minute)
	require.NoError(t, store.Save(ctx, &sess))

	sess.ExpiresAt = time.Now().Add(time.Hour)
	require.NoError(t, store.Update(ctx, &sess))
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:token:"+sess.Token).Seconds(), 5)
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:id:"+sess.ID.String()).Seconds(), 5)
}

func TestStore_LogoutRacingTouch(t *testing.T) {
	t.Parallel()
	store, _ := setup(t)
	mgr := session.NewManager[data](store, session.WithTouchInterval(0))
	ctx := context.Background()

	sess, err := mgr.Create(ctx, uuid.New(), data{Kind: "customer"}, session.Meta{})
	require.NoError(t, err)
	resolved, err := mgr.GetByToken(ctx, sess.Token)
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, sess.ID))
	_, err = mgr.Touch(ctx, resolved)
	assert.ErrorIs(t, err, session.ErrNotFound)

	_, err = mgr.GetByToken(ctx, sess.Token)
	assert.ErrorIs(t, err, session.ErrNotFound, "logout must stick")
}

func TestStore_WithManager(t *testing.T) {
	t.Parallel()
	store, _ := setup(t)
	mgr := session.NewManager[data](store, session.WithTouchInterval(0))
	ctx := context.Background()

	sess, err := mgr.Create(ctx, uuid.New(), data{Kind: "customer"}, session.Meta{})
	require.NoError(t, err)

	got, err := mgr.GetByToken(ctx, sess.Token)
	require.NoError(t, err)
	touched, err := mgr.Touch(ctx, got)
	require.NoError(t, err)
	assert.False(t, touched.ExpiresAt.Before(sess.ExpiresAt))

	n, err := mgr.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
