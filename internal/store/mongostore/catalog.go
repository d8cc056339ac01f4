package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/store"
)

type productDoc struct {
	ID          string          `bson:"_id"`
	Name        string          `bson:"name"`
	Description string          `bson:"description"`
	Price       bson.Decimal128 `bson:"price"`
	Active      bool            `bson:"active"`
	CreatedAt   time.Time       `bson:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at"`
}

func toProductDoc(p catalog.Product) (productDoc, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return productDoc{}, err
	}
	return productDoc{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       price,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}, nil
}

func (d productDoc) product() (catalog.Product, error) {
	id, err := parseID(d.ID, "product id")
	if err != nil {
		return catalog.Product{}, err
	}
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return catalog.Product{}, err
	}
	return catalog.Product{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		Price:       price,
		Active:      d.Active,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (s *Store) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	filter := bson.M{}
	if !f.IncludeInactive {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cur, err := s.products.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrap("find products", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("decode products", err)
	}

	out := make([]catalog.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.product()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) ProductByID(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	var doc productDoc
	err := s.products.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return catalog.Product{}, store.ErrNotFound
	}
	if err != nil {
		return catalog.Product{}, wrap("find product", err)
	}
	return doc.product()
}

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) error {
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	_, err = s.products.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return wrap("insert product", err)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p catalog.Product) error {
	doc, err := toProductDoc(p)
	if err != nil {
		return err
	}
	res, err := s.products.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return wrap("replace product", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res, err := s.products.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return wrap("delete product", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
