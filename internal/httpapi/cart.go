package httpapi

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmitrymomot/servicehub/core/binder"
	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/internal/cart"
)

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartLine struct {
	cart.Item
	Subtotal decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Items     []cartLine      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
	Version   int64           `json:"version"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

func newCartResponse(c cart.Cart) cartResponse {
	lines := make([]cartLine, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, cartLine{Item: it, Subtotal: it.Subtotal()})
	}
	resp := cartResponse{Items: lines, ItemCount: c.ItemCount(), Total: c.Total(), Version: c.Version}
	if !c.UpdatedAt.IsZero() {
		resp.UpdatedAt = &c.UpdatedAt
	}
	return resp
}

func (a *API) cartRoutes(r router.Router[Context]) {
	r.Use(requireCustomer())
	r.Get("/", a.getCart)
	r.Post("/items", a.addCartItem)
	r.Put("/items/{productID}", a.setCartItem)
	r.Delete("/items/{productID}", a.removeCartItem)
}

func (a *API) getCart(ctx Context) handler.Response {
	c, err := a.deps.Carts.Snapshot(ctx, principal(ctx).ID)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(newCartResponse(c))
}

// addCartItem defaults the quantity to one.
func (a *API) addCartItem(ctx Context) handler.Response {
	var req addItemRequest
	if err := binder.JSON()(ctx.Request(), &req); err != nil {
		return response.Error(err)
	}
	if req.ProductID == uuid.Nil {
		return response.Error(ErrInvalidID)
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	c, err := a.deps.Carts.AddItem(ctx, principal(ctx).ID, req.ProductID, req.Quantity)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(newCartResponse(c))
}

func (a *API) setCartItem(ctx Context) handler.Response {
	productID, err := pathID(ctx, "productID")
	if err != nil {
		return response.Error(err)
	}
	var req setQuantityRequest
	if err := binder.JSON()(ctx.Request(), &req); err != nil {
		return response.Error(err)
	}
	c, err := a.deps.Carts.SetQuantity(ctx, principal(ctx).ID, productID, req.Quantity)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(newCartResponse(c))
}

func (a *API) removeCartItem(ctx Context) handler.Response {
	productID, err := pathID(ctx, "productID")
	if err != nil {
		return response.Error(err)
	}
	c, err := a.deps.Carts.RemoveItem(ctx, principal(ctx).ID, productID)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(newCartResponse(c))
}
