package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/store"
)

type accountDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	PasswordHash []byte    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d accountDoc) account(kind identity.Kind) (account.Account, error) {
	id, err := parseID(d.ID, "account id")
	if err != nil {
		return account.Account{}, err
	}
	return account.Account{
		ID:           id,
		Kind:         kind,
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc account.Account) error {
	coll, err := s.accountsOf(acc.Kind)
	if err != nil {
		return err
	}
	_, err = coll.InsertOne(ctx, accountDoc{
		ID:           acc.ID.String(),
		Email:        acc.Email,
		Name:         acc.Name,
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return wrap("insert account", err)
	}
	return nil
}

func (s *Store) AccountByEmail(ctx context.Context, kind identity.Kind, email string) (account.Account, error) {
	return s.findAccount(ctx, kind, bson.M{"email": email})
}

func (s *Store) AccountByID(ctx context.Context, kind identity.Kind, id uuid.UUID) (account.Account, error) {
	return s.findAccount(ctx, kind, bson.M{"_id": id.String()})
}

func (s *Store) findAccount(ctx context.Context, kind identity.Kind, filter bson.M) (account.Account, error) {
	coll, err := s.accountsOf(kind)
	if err != nil {
		return account.Account{}, err
	}
	var doc accountDoc
	err = coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return account.Account{}, store.ErrNotFound
	}
	if err != nil {
		return account.Account{}, wrap("find account", err)
	}
	return doc.account(kind)
}

func (s *Store) UpdatePassword(ctx context.Context, kind identity.Kind, id uuid.UUID, hash []byte) error {
	coll, err := s.accountsOf(kind)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"password_hash": hash}})
	if err != nil {
		return wrap("update password", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
