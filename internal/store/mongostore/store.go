// Package mongostore implements the account, catalog, cart, order and stats
// repositories on MongoDB.
//
// Ids are stored as canonical UUID strings and money as Decimal128. Checkout
// runs in a multi-document transaction, so the deployment must be a replica set.
package mongostore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	dbmongo "github.com/dmitrymomot/servicehub/integration/database/mongo"
	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

const (
	CollectionCustomers = "customers"
	CollectionAdmins    = "admins"
	CollectionProducts  = "products"
	CollectionCarts     = "carts"
	CollectionOrders    = "orders"
)

type Store struct {
	client    *mongo.Client
	customers *mongo.Collection
	admins    *mongo.Collection
	products  *mongo.Collection
	carts     *mongo.Collection
	orders    *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		client:    db.Client(),
		customers: db.Collection(CollectionCustomers),
		admins:    db.Collection(CollectionAdmins),
		products:  db.Collection(CollectionProducts),
		carts:     db.Collection(CollectionCarts),
		orders:    db.Collection(CollectionOrders),
	}
}

// EnsureIndexes creates the indexes every query relies on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.customers, []mongo.IndexModel{{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}}},
		{s.admins, []mongo.IndexModel{{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)}}},
		{s.products, []mongo.IndexModel{{Keys: bson.D{{Key: "active", Value: 1}, {Key: "created_at", Value: 1}}}}},
		{s.orders, []mongo.IndexModel{
			{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "updated_at", Value: 1}}},
		}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateMany(ctx, spec.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

func (s *Store) accountsOf(kind identity.Kind) (*mongo.Collection, error) {
	switch kind {
	case identity.KindCustomer:
		return s.customers, nil
	case identity.KindAdmin:
		return s.admins, nil
	}
	return nil, identity.ErrInvalidKind
}

// wrap annotates err with op and marks network failures as transient.
func wrap(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	if dbmongo.IsTransient(err) {
		return retry.Transient(err)
	}
	return err
}

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("encode decimal %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode decimal %s: %w", v, err)
	}
	return d, nil
}

func parseID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("decode %s: %w", field, err)
	}
	return id, nil
}

var (
	_ account.Repository = (*Store)(nil)
	_ catalog.Repository = (*Store)(nil)
	_ cart.Repository    = (*Store)(nil)
	_ order.Repository   = (*Store)(nil)
	_ stats.Repository   = (*Store)(nil)
)
