// Package mongostore keeps sessions in a MongoDB collection.
//
// The token is unique and a TTL index on expires_at lets the server remove
// stale documents; DeleteExpired covers the gap until the TTL monitor runs.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/servicehub/core/session"
	dbmongo "github.com/dmitrymomot/servicehub/integration/database/mongo"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

// DefaultCollection is the collection used when none is provided.
const DefaultCollection = "sessions"

type document[Data any] struct {
	ID        string    `bson:"_id"`
	Token     string    `bson:"token"`
	UserID    string    `bson:"user_id"`
	IP        string    `bson:"ip,omitempty"`
	UserAgent string    `bson:"user_agent,omitempty"`
	Data      Data      `bson:"data"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toDocument[Data any](s *session.Session[Data]) document[Data] {
	return document[Data]{
		ID:        s.ID.String(),
		Token:     s.Token,
		UserID:    s.UserID.String(),
		IP:        s.IP,
		UserAgent: s.UserAgent,
		Data:      s.Data,
		ExpiresAt: s.ExpiresAt.UTC(),
		CreatedAt: s.CreatedAt.UTC(),
		UpdatedAt: s.UpdatedAt.UTC(),
	}
}

func (d document[Data]) session() (*session.Session[Data], error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("decode session id: %w", err)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return nil, fmt.Errorf("decode session user id: %w", err)
	}
	return &session.Session[Data]{
		ID:        id,
		Token:     d.Token,
		UserID:    userID,
		IP:        d.IP,
		UserAgent: d.UserAgent,
		Data:      d.Data,
		ExpiresAt: d.ExpiresAt,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

// Store is a session.Store backed by MongoDB.
type Store[Data any] struct {
	coll *mongo.Collection
	now  func() time.Time
}

// New creates a store over coll.
func New[Data any](coll *mongo.Collection) *Store[Data] {
	return &Store[Data]{coll: coll, now: time.Now}
}

// EnsureIndexes creates the unique token index and the TTL index.
func (s *Store[Data]) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("create session indexes: %w", err)
	}
	return nil
}

func (s *Store[Data]) GetByID(ctx context.Context, id uuid.UUID) (*session.Session[Data], error) {
	return s.findOne(ctx, bson.M{"_id": id.String()})
}

func (s *Store[Data]) GetByToken(ctx context.Context, token string) (*session.Session[Data], error) {
	return s.findOne(ctx, bson.M{"token": token})
}

func (s *Store[Data]) findOne(ctx context.Context, filter bson.M) (*session.Session[Data], error) {
	var doc document[Data]
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, wrap("find session", err)
	}
	return doc.session()
}

func (s *Store[Data]) Save(ctx context.Context, sess *session.Session[Data]) error {
	doc := toDocument(sess)
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return wrap("save session", err)
	}
	return nil
}

// Update replaces the document without upserting, so a logged-out session
// is not brought back by a late touch.
func (s *Store[Data]) Update(ctx context.Context, sess *session.Session[Data]) error {
	doc := toDocument(sess)
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return wrap("update session", err)
	}
	if res.MatchedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *Store[Data]) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return wrap("delete session", err)
	}
	if res.DeletedCount == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *Store[Data]) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now().UTC()}})
	if err != nil {
		return 0, wrap("delete expired sessions", err)
	}
	return res.DeletedCount, nil
}

func wrap(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	if dbmongo.IsTransient(err) {
		return retry.Transient(err)
	}
	return err
}
