// Package stats rolls committed orders up into totals per state and per UTC day.
package stats

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/pkg/retry"
)

var ErrInvalidRange = errors.New("range start must be before its end")

// DefaultWindow is the range used when the caller gives none.
const DefaultWindow = 30 * 24 * time.Hour

// Range is half-open: From is included, To is not.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r Range) Validate() error {
	if !r.From.Before(r.To) {
		return ErrInvalidRange
	}
	return nil
}

// LastDays returns the range of n whole UTC days ending with today.
func LastDays(now time.Time, n int) Range {
	end := Day(now).AddDate(0, 0, 1)
	return Range{From: end.AddDate(0, 0, -n), To: end}
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Bucket struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

func (b Bucket) add(o Bucket) Bucket {
	return Bucket{Count: b.Count + o.Count, Amount: b.Amount.Add(o.Amount)}
}

type DayBucket struct {
	Day     time.Time              `json:"day"`
	Total   Bucket                 `json:"total"`
	ByState map[order.State]Bucket `json:"by_state"`
}

type Summary struct {
	Range   Range                  `json:"range"`
	Total   Bucket                 `json:"total"`
	ByState map[order.State]Bucket `json:"by_state"`
	ByDay   []DayBucket            `json:"by_day"`
}

// Row is one pre-aggregated group: orders in State whose last transition fell on Day.
type Row struct {
	Day    time.Time
	State  order.State
	Count  int64
	Amount decimal.Decimal
}

// Repository groups terminal orders with UpdatedAt in [from, to) by UTC day and state.
type Repository interface {
	DailyOrderTotals(ctx context.Context, from, to time.Time, states []order.State) ([]Row, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Summarize reads committed orders only; it takes no locks.
func (s *Service) Summarize(ctx context.Context, r Range) (Summary, error) {
	if err := r.Validate(); err != nil {
		return Summary{}, err
	}
	r = Range{From: r.From.UTC(), To: r.To.UTC()}

	var rows []Row
	err := retry.Once(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.DailyOrderTotals(ctx, r.From, r.To, order.TerminalStates)
		return err
	})
	if err != nil {
		return Summary{}, fmt.Errorf("aggregate orders: %w", err)
	}
	return Fold(r, rows), nil
}

// Fold builds a Summary from rows. Every terminal state appears in ByState,
// days without orders are omitted, and ByDay is sorted by day.
func Fold(r Range, rows []Row) Summary {
	sum := Summary{
		Range:   r,
		Total:   Bucket{Amount: decimal.Zero},
		ByState: emptyStates(),
		ByDay:   []DayBucket{},
	}

	days := make(map[time.Time]*DayBucket)
	for _, row := range rows {
		if !row.State.IsTerminal() || row.Count == 0 {
			continue
		}
		b := Bucket{Count: row.Count, Amount: row.Amount}
		day := Day(row.Day)

		sum.Total = sum.Total.add(b)
		sum.ByState[row.State] = sum.ByState[row.State].add(b)

		db, ok := days[day]
		if !ok {
			db = &DayBucket{Day: day, Total: Bucket{Amount: decimal.Zero}, ByState: emptyStates()}
			days[day] = db
		}
		db.Total = db.Total.add(b)
		db.ByState[row.State] = db.ByState[row.State].add(b)
	}

	for _, db := range days {
		sum.ByDay = append(sum.ByDay, *db)
	}
	slices.SortFunc(sum.ByDay, func(a, b DayBucket) int { return a.Day.Compare(b.Day) })
	return sum
}

func emptyStates() map[order.State]Bucket {
	m := make(map[order.State]Bucket, len(order.TerminalStates))
	for _, st := range order.TerminalStates {
		m[st] = Bucket{Amount: decimal.Zero}
	}
	return m
}
