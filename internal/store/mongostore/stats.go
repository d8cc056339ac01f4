package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/stats"
)

type dailyTotalDoc struct {
	Key struct {
		Day   time.Time `bson:"day"`
		State string    `bson:"state"`
	} `bson:"_id"`
	Count  int64           `bson:"count"`
	Amount bson.Decimal128 `bson:"amount"`
}

// DailyOrderTotals groups on the server with $dateTrunc, which needs MongoDB 5.0+.
func (s *Store) DailyOrderTotals(ctx context.Context, from, to time.Time, states []order.State) ([]stats.Row, error) {
	names := make([]string, 0, len(states))
	for _, st := range states {
		names = append(names, string(st))
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"state":      bson.M{"$in": names},
			"updated_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"day":   bson.M{"$dateTrunc": bson.M{"date": "$updated_at", "unit": "day", "timezone": "UTC"}},
				"state": "$state",
			},
			"count":  bson.M{"$sum": 1},
			"amount": bson.M{"$sum": "$total"},
		}}},
	}

	cur, err := s.orders.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrap("aggregate orders", err)
	}
	var docs []dailyTotalDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("decode order totals", err)
	}

	rows := make([]stats.Row, 0, len(docs))
	for _, d := range docs {
		amount, err := fromDecimal128(d.Amount)
		if err != nil {
			return nil, err
		}
		rows = append(rows, stats.Row{
			Day:    d.Key.Day.UTC(),
			State:  order.State(d.Key.State),
			Count:  d.Count,
			Amount: amount,
		})
	}
	return rows, nil
}
