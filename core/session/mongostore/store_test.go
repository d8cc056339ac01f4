//go:build integration

package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/core/session/mongostore"
)

type data struct {
	Kind string `bson:"kind" json:"kind"`
}

func setup(t *testing.T) *mongostore.Store[data] {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	store := mongostore.New[data](client.Database("test").Collection(mongostore.DefaultCollection))
	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}

func TestStore(t *testing.T) {
	store := setup(t)
	ctx := context.Background()
	mgr := session.NewManager[data](store, session.WithTTL(time.Hour))

	sess, err := mgr.Create(ctx, uuid.New(), data{Kind: "customer"}, session.Meta{UserAgent: "test"})
	require.NoError(t, err)

	t.Run("get by token", func(t *testing.T) {
		got, err := mgr.GetByToken(ctx, sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.Equal(t, "customer", got.Data.Kind)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := mgr.GetByID(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.Token, got.Token)
	})

	t.Run("delete expired", func(t *testing.T) {
		expired, err := session.New(uuid.New(), data{}, session.Meta{}, -time.Minute, time.Now())
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, &expired))

		n, err := store.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, mgr.Delete(ctx, sess.ID))
		_, err := store.GetByToken(ctx, sess.Token)
		assert.ErrorIs(t, err, session.ErrNotFound)
	})

	t.Run("update after delete", func(t *testing.T) {
		late := sess
		late.ExpiresAt = late.ExpiresAt.Add(time.Hour)
		assert.ErrorIs(t, store.Update(ctx, &late), session.ErrNotFound)
		_, err := store.GetByID(ctx, sess.ID)
		assert.ErrorIs(t, err, session.ErrNotFound, "update must not upsert")
	})
}
