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

	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/store"
)

type attemptDoc struct {
	ID        string    `bson:"id"`
	Outcome   string    `bson:"outcome"`
	From      string    `bson:"from"`
	To        string    `bson:"to"`
	Reference string    `bson:"reference,omitempty"`
	At        time.Time `bson:"at"`
}

type orderDoc struct {
	ID         string          `bson:"_id"`
	CustomerID string          `bson:"customer_id"`
	Items      []itemDoc       `bson:"items"`
	Total      bson.Decimal128 `bson:"total"`
	State      string          `bson:"state"`
	Attempts   []attemptDoc    `bson:"attempts"`
	CreatedAt  time.Time       `bson:"created_at"`
	UpdatedAt  time.Time       `bson:"updated_at"`
}

func toAttemptDoc(a order.PaymentAttempt) attemptDoc {
	return attemptDoc{
		ID:        a.ID.String(),
		Outcome:   string(a.Outcome),
		From:      string(a.From),
		To:        string(a.To),
		Reference: a.Reference,
		At:        a.At.UTC(),
	}
}

func toOrderDoc(o order.Order) (orderDoc, error) {
	items, err := toItemDocs(o.Items)
	if err != nil {
		return orderDoc{}, err
	}
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDoc{}, err
	}
	attempts := make([]attemptDoc, 0, len(o.Attempts))
	for _, a := range o.Attempts {
		attempts = append(attempts, toAttemptDoc(a))
	}
	return orderDoc{
		ID:         o.ID.String(),
		CustomerID: o.CustomerID.String(),
		Items:      items,
		Total:      total,
		State:      string(o.State),
		Attempts:   attempts,
		CreatedAt:  o.CreatedAt.UTC(),
		UpdatedAt:  o.UpdatedAt.UTC(),
	}, nil
}

func (d orderDoc) order() (order.Order, error) {
	id, err := parseID(d.ID, "order id")
	if err != nil {
		return order.Order{}, err
	}
	customerID, err := parseID(d.CustomerID, "customer id")
	if err != nil {
		return order.Order{}, err
	}
	items, err := fromItemDocs(d.Items)
	if err != nil {
		return order.Order{}, err
	}
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return order.Order{}, err
	}
	attempts := make([]order.PaymentAttempt, 0, len(d.Attempts))
	for _, a := range d.Attempts {
		aid, err := parseID(a.ID, "attempt id")
		if err != nil {
			return order.Order{}, err
		}
		attempts = append(attempts, order.PaymentAttempt{
			ID:        aid,
			Outcome:   order.Outcome(a.Outcome),
			From:      order.State(a.From),
			To:        order.State(a.To),
			Reference: a.Reference,
			At:        a.At,
		})
	}
	return order.Order{
		ID:         id,
		CustomerID: customerID,
		Items:      items,
		Total:      total,
		State:      order.State(d.State),
		Attempts:   attempts,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}, nil
}

// CommitCheckout empties the cart and inserts the order in one transaction.
// The cart update is conditioned on cartVersion.
func (s *Store) CommitCheckout(ctx context.Context, o order.Order, cartVersion int64) error {
	doc, err := toOrderDoc(o)
	if err != nil {
		return err
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return wrap("start session", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		res, err := s.carts.UpdateOne(ctx,
			bson.M{"_id": doc.CustomerID, "version": cartVersion},
			bson.M{"$set": bson.M{
				"items":      []itemDoc{},
				"version":    cartVersion + 1,
				"updated_at": doc.CreatedAt,
			}},
		)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, store.ErrConflict
		}
		if _, err := s.orders.InsertOne(ctx, doc); err != nil {
			return nil, err
		}
		return nil, nil
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrConflict):
		return store.ErrConflict
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return wrap("commit checkout", err)
}

func (s *Store) OrderByID(ctx context.Context, id uuid.UUID) (order.Order, error) {
	var doc orderDoc
	err := s.orders.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return order.Order{}, store.ErrNotFound
	}
	if err != nil {
		return order.Order{}, wrap("find order", err)
	}
	return doc.order()
}

func (s *Store) ListOrders(ctx context.Context, f order.Filter) ([]order.Order, error) {
	filter := bson.M{}
	if f.CustomerID != uuid.Nil {
		filter["customer_id"] = f.CustomerID.String()
	}
	if f.State != "" {
		filter["state"] = string(f.State)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(f.Offset))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	cur, err := s.orders.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrap("find orders", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("decode orders", err)
	}

	out := make([]order.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// TransitionOrder moves the order only while it is still in state from and
// appends the attempt to its audit list in the same update.
func (s *Store) TransitionOrder(ctx context.Context, id uuid.UUID, from order.State, attempt order.PaymentAttempt) (order.Order, error) {
	ad := toAttemptDoc(attempt)
	update := bson.M{
		"$set":  bson.M{"state": ad.To, "updated_at": ad.At},
		"$push": bson.M{"attempts": ad},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc orderDoc
	err := s.orders.FindOneAndUpdate(ctx, bson.M{"_id": id.String(), "state": string(from)}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		n, cerr := s.orders.CountDocuments(ctx, bson.M{"_id": id.String()})
		if cerr != nil {
			return order.Order{}, wrap("count orders", cerr)
		}
		if n == 0 {
			return order.Order{}, store.ErrNotFound
		}
		return order.Order{}, store.ErrConflict
	}
	if err != nil {
		return order.Order{}, wrap(fmt.Sprintf("transition order %s", id), err)
	}
	return doc.order()
}
