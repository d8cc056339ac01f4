package httpapi

import (
	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/binder"
	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/realtime"
)

type orderQuery struct {
	State      string    `query:"state"`
	CustomerID uuid.UUID `query:"customer_id"`
	Limit      int       `query:"limit"`
	Offset     int       `query:"offset"`
}

func (q orderQuery) filter() (order.Filter, error) {
	f := order.Filter{State: order.State(q.State), CustomerID: q.CustomerID, Limit: q.Limit, Offset: q.Offset}
	if q.State != "" && !f.State.Valid() {
		return order.Filter{}, ErrInvalidState
	}
	return f, nil
}

type refundRequest struct {
	Reference string `json:"reference"`
}

func (a *API) adminRoutes(r router.Router[Context]) {
	r.Use(requireAdmin())
	r.Get("/orders", a.listOrders)
	r.Get("/orders/{id}", a.getOrder)
	r.Post("/orders/{id}/refund", a.refundOrder)
	r.Get("/realtime", a.realtimeStats)
}

func (a *API) listOrders(ctx Context) handler.Response {
	var q orderQuery
	if err := binder.Query()(ctx.Request(), &q); err != nil {
		return response.Error(err)
	}
	f, err := q.filter()
	if err != nil {
		return response.Error(err)
	}
	orders, err := a.deps.Orders.List(ctx, f)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(orders)
}

func (a *API) getOrder(ctx Context) handler.Response {
	id, err := pathID(ctx, "id")
	if err != nil {
		return response.Error(err)
	}
	o, err := a.deps.Orders.Get(ctx, id)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(o)
}

// refundOrder accepts an empty body.
func (a *API) refundOrder(ctx Context) handler.Response {
	id, err := pathID(ctx, "id")
	if err != nil {
		return response.Error(err)
	}
	var req refundRequest
	if ctx.Request().ContentLength > 0 {
		if err := binder.JSON()(ctx.Request(), &req); err != nil {
			return response.Error(err)
		}
	}
	res, err := a.deps.Orders.Refund(ctx, id, req.Reference)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(res)
}

func (a *API) realtimeStats(Context) handler.Response {
	if a.deps.Hub == nil {
		return response.JSON(realtime.Stats{})
	}
	return response.JSON(a.deps.Hub.Stats())
}
