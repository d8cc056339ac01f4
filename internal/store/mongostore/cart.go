package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/store"
)

type itemDoc struct {
	ProductID string          `bson:"product_id"`
	Name      string          `bson:"name"`
	Quantity  int             `bson:"quantity"`
	UnitPrice bson.Decimal128 `bson:"unit_price"`
}

type cartDoc struct {
	ID        string    `bson:"_id"`
	Items     []itemDoc `bson:"items"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func toItemDocs(items []cart.Item) ([]itemDoc, error) {
	docs := make([]itemDoc, 0, len(items))
	for _, it := range items {
		price, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return nil, err
		}
		docs = append(docs, itemDoc{
			ProductID: it.ProductID.String(),
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: price,
		})
	}
	return docs, nil
}

func fromItemDocs(docs []itemDoc) ([]cart.Item, error) {
	items := make([]cart.Item, 0, len(docs))
	for _, d := range docs {
		id, err := parseID(d.ProductID, "product id")
		if err != nil {
			return nil, err
		}
		price, err := fromDecimal128(d.UnitPrice)
		if err != nil {
			return nil, err
		}
		items = append(items, cart.Item{ProductID: id, Name: d.Name, Quantity: d.Quantity, UnitPrice: price})
	}
	return items, nil
}

func (s *Store) CartByCustomer(ctx context.Context, customerID uuid.UUID) (cart.Cart, error) {
	var doc cartDoc
	err := s.carts.FindOne(ctx, bson.M{"_id": customerID.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return cart.Cart{CustomerID: customerID, Items: []cart.Item{}}, nil
	}
	if err != nil {
		return cart.Cart{}, wrap("find cart", err)
	}
	items, err := fromItemDocs(doc.Items)
	if err != nil {
		return cart.Cart{}, err
	}
	return cart.Cart{CustomerID: customerID, Items: items, Version: doc.Version, UpdatedAt: doc.UpdatedAt}, nil
}

// SaveCart inserts the first version and afterwards updates only when the
// stored version matches; a concurrent first insert surfaces as a duplicate key.
func (s *Store) SaveCart(ctx context.Context, c cart.Cart, expectedVersion int64) error {
	items, err := toItemDocs(c.Items)
	if err != nil {
		return err
	}
	doc := cartDoc{ID: c.CustomerID.String(), Items: items, Version: c.Version, UpdatedAt: c.UpdatedAt.UTC()}

	if expectedVersion == 0 {
		_, err := s.carts.InsertOne(ctx, doc)
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		if err != nil {
			return wrap("insert cart", err)
		}
		return nil
	}

	res, err := s.carts.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "version": expectedVersion},
		bson.M{"$set": bson.M{"items": doc.Items, "version": doc.Version, "updated_at": doc.UpdatedAt}},
	)
	if err != nil {
		return wrap("update cart", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrConflict
	}
	return nil
}
