package httpapi

import (
	"crypto/subtle"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/binder"
	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/internal/order"
)

// WebhookSecretHeader authenticates payment provider callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

type pageQuery struct {
	Limit  int `query:"limit"`
	Offset int `query:"offset"`
}

type attemptRequest struct {
	Outcome   string `json:"outcome"`
	Reference string `json:"reference"`
}

type webhookRequest struct {
	OrderID   uuid.UUID `json:"order_id"`
	Outcome   string    `json:"outcome"`
	Reference string    `json:"reference"`
}

func (a *API) paymentRoutes(r router.Router[Context]) {
	// The webhook is registered only when a secret is configured.
	if a.cfg.WebhookSecret != "" {
		r.Post("/webhook", a.paymentWebhook)
	}

	customer := r.With(requireCustomer())
	customer.Post("/checkout", a.checkout)
	customer.Get("/orders", a.listOwnOrders)
	customer.Get("/orders/{id}", a.getOwnOrder)
	customer.Post("/orders/{id}/attempts", a.recordOwnAttempt)
}

func (a *API) checkout(ctx Context) handler.Response {
	o, err := a.deps.Orders.Checkout(ctx, principal(ctx).ID)
	if err != nil {
		return response.Error(err)
	}
	return response.Created(o)
}

func (a *API) listOwnOrders(ctx Context) handler.Response {
	var q pageQuery
	if err := binder.Query()(ctx.Request(), &q); err != nil {
		return response.Error(err)
	}
	orders, err := a.deps.Orders.ListForCustomer(ctx, principal(ctx).ID, q.Limit, q.Offset)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(orders)
}

func (a *API) getOwnOrder(ctx Context) handler.Response {
	id, err := pathID(ctx, "id")
	if err != nil {
		return response.Error(err)
	}
	o, err := a.deps.Orders.GetForCustomer(ctx, principal(ctx).ID, id)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(o)
}

func (a *API) recordOwnAttempt(ctx Context) handler.Response {
	id, err := pathID(ctx, "id")
	if err != nil {
		return response.Error(err)
	}
	var req attemptRequest
	if err := binder.JSON()(ctx.Request(), &req); err != nil {
		return response.Error(err)
	}
	outcome, err := order.ParseOutcome(req.Outcome)
	if err != nil {
		return response.Error(err)
	}
	res, err := a.deps.Orders.RecordPaymentAttemptForCustomer(ctx, principal(ctx).ID, id, outcome, req.Reference)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(res)
}

func (a *API) paymentWebhook(ctx Context) handler.Response {
	given := ctx.Request().Header.Get(WebhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(given), []byte(a.cfg.WebhookSecret)) != 1 {
		return response.Error(ErrInvalidWebhookSecret)
	}

	var req webhookRequest
	if err := binder.JSON()(ctx.Request(), &req); err != nil {
		return response.Error(err)
	}
	if req.OrderID == uuid.Nil {
		return response.Error(ErrInvalidID)
	}
	outcome, err := order.ParseOutcome(req.Outcome)
	if err != nil {
		return response.Error(err)
	}
	res, err := a.deps.Orders.RecordPaymentAttempt(ctx, req.OrderID, outcome, req.Reference)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(res)
}
