package httpapi

import (
	"time"

	"github.com/dmitrymomot/servicehub/core/binder"
	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/internal/stats"
)

const dateLayout = "2006-01-02"

type rangeQuery struct {
	From string `query:"from"`
	To   string `query:"to"`
}

func (a *API) statsRoutes(r router.Router[Context]) {
	r.Use(requireAdmin())
	r.Get("/summary", a.statsSummary)
}

func (a *API) statsSummary(ctx Context) handler.Response {
	var q rangeQuery
	if err := binder.Query()(ctx.Request(), &q); err != nil {
		return response.Error(err)
	}
	rng, err := parseRange(q, a.now())
	if err != nil {
		return response.Error(err)
	}
	sum, err := a.deps.Stats.Summarize(ctx, rng)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(sum)
}

// parseRange defaults to the last 30 days. A bare date for "to" includes that
// whole day.
func parseRange(q rangeQuery, now time.Time) (stats.Range, error) {
	rng := stats.LastDays(now, int(stats.DefaultWindow/(24*time.Hour)))
	if q.From != "" {
		from, _, err := parseBound(q.From)
		if err != nil {
			return stats.Range{}, err
		}
		rng.From = from
	}
	if q.To != "" {
		to, dateOnly, err := parseBound(q.To)
		if err != nil {
			return stats.Range{}, err
		}
		if dateOnly {
			to = to.AddDate(0, 0, 1)
		}
		rng.To = to
	}
	if err := rng.Validate(); err != nil {
		return stats.Range{}, err
	}
	return rng, nil
}

func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, ErrInvalidDate
}
