package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/internal/store/memstore"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLastDays(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+1800)
	now := time.Date(2025, 3, 10, 2, 0, 0, 0, ist) // 2025-03-09 20:30 UTC

	r := stats.LastDays(now, 7)
	assert.Equal(t, day("2025-03-03"), r.From)
	assert.Equal(t, day("2025-03-10"), r.To)
	assert.NoError(t, r.Validate())
}

func TestRange_Validate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, stats.Range{From: day("2025-03-02"), To: day("2025-03-01")}.Validate(), stats.ErrInvalidRange)
	assert.ErrorIs(t, stats.Range{From: day("2025-03-01"), To: day("2025-03-01")}.Validate(), stats.ErrInvalidRange)
}

func TestFold(t *testing.T) {
	t.Parallel()

	r := stats.Range{From: day("2025-03-01"), To: day("2025-03-04")}
	rows := []stats.Row{
		{Day: day("2025-03-03"), State: order.StateCaptured, Count: 1, Amount: decimal.RequireFromString("10.50")},
		{Day: day("2025-03-01"), State: order.StateCaptured, Count: 2, Amount: decimal.RequireFromString("30")},
		{Day: day("2025-03-01"), State: order.StateFailed, Count: 1, Amount: decimal.RequireFromString("5")},
		{Day: day("2025-03-01"), State: order.StatePending, Count: 9, Amount: decimal.RequireFromString("999")},
	}

	sum := stats.Fold(r, rows)

	assert.Equal(t, int64(4), sum.Total.Count, "non-terminal rows are ignored")
	assert.True(t, decimal.RequireFromString("45.50").Equal(sum.Total.Amount))

	require.Len(t, sum.ByState, len(order.TerminalStates))
	assert.Equal(t, int64(3), sum.ByState[order.StateCaptured].Count)
	assert.Equal(t, int64(1), sum.ByState[order.StateFailed].Count)
	assert.Zero(t, sum.ByState[order.StateRefunded].Count)
	assert.True(t, sum.ByState[order.StateRefunded].Amount.IsZero())

	require.Len(t, sum.ByDay, 2, "days without orders are omitted")
	assert.Equal(t, day("2025-03-01"), sum.ByDay[0].Day)
	assert.Equal(t, int64(3), sum.ByDay[0].Total.Count)
	assert.Equal(t, day("2025-03-03"), sum.ByDay[1].Day)
	assert.True(t, decimal.RequireFromString("10.50").Equal(sum.ByDay[1].ByState[order.StateCaptured].Amount))
}

func TestFold_Empty(t *testing.T) {
	t.Parallel()

	sum := stats.Fold(stats.LastDays(time.Now(), 1), nil)
	assert.Zero(t, sum.Total.Count)
	assert.NotNil(t, sum.ByDay)
	assert.Empty(t, sum.ByDay)
	assert.Len(t, sum.ByState, len(order.TerminalStates))
}

func TestService_Summarize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := memstore.New()
	products := catalog.NewService(st, nil)
	p, err := products.Create(ctx, catalog.Input{Name: "Car wash", Price: decimal.RequireFromString("12.25")})
	require.NoError(t, err)

	now := time.Date(2025, 3, 1, 23, 30, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	carts := cart.NewService(st, products, nil)
	orders := order.NewService(st, st, nil, order.WithClock(clock))
	customer := uuid.New()

	place := func(outcome order.Outcome) order.Order {
		t.Helper()
		_, err := carts.AddItem(ctx, customer, p.ID, 2)
		require.NoError(t, err)
		o, err := orders.Checkout(ctx, customer)
		require.NoError(t, err)
		if outcome != "" {
			_, err = orders.RecordPaymentAttempt(ctx, o.ID, outcome, "")
			require.NoError(t, err)
		}
		return o
	}

	place(order.OutcomeCaptured)
	place(order.OutcomeDeclined)
	place(order.OutcomeAuthorized) // not terminal
	place("")                      // pending

	now = now.Add(time.Hour) // next UTC day
	place(order.OutcomeCaptured)

	svc := stats.NewService(st)

	sum, err := svc.Summarize(ctx, stats.Range{From: day("2025-03-01"), To: day("2025-03-03")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.Total.Count)
	assert.True(t, decimal.RequireFromString("73.50").Equal(sum.Total.Amount))
	assert.Equal(t, int64(2), sum.ByState[order.StateCaptured].Count)
	assert.Equal(t, int64(1), sum.ByState[order.StateFailed].Count)
	require.Len(t, sum.ByDay, 2)
	assert.Equal(t, day("2025-03-01"), sum.ByDay[0].Day)
	assert.Equal(t, day("2025-03-02"), sum.ByDay[1].Day)

	first, err := svc.Summarize(ctx, stats.Range{From: day("2025-03-01"), To: day("2025-03-02")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Total.Count, "end of range is exclusive")

	_, err = svc.Summarize(ctx, stats.Range{From: day("2025-03-02"), To: day("2025-03-01")})
	assert.ErrorIs(t, err, stats.ErrInvalidRange)
}
