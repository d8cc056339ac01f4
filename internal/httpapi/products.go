package httpapi

import (
	"errors"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/binder"
	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/internal/catalog"
)

type productQuery struct {
	All bool `query:"all"`
}

func (a *API) productRoutes(r router.Router[Context]) {
	r.Get("/", a.listProducts)
	r.Get("/{id}", a.getProduct)

	admin := r.With(requireAdmin())
	admin.Post("/", a.createProduct)
	admin.Put("/{id}", a.updateProduct)
	admin.Delete("/{id}", a.deleteProduct)
}

// listProducts shows inactive products to admins asking for ?all=true.
func (a *API) listProducts(ctx Context) handler.Response {
	var q productQuery
	if err := binder.Query()(ctx.Request(), &q); err != nil {
		return response.Error(err)
	}
	products, err := a.deps.Catalog.List(ctx, catalog.Filter{IncludeInactive: q.All && principal(ctx).IsAdmin()})
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(products)
}

func (a *API) getProduct(ctx Context) handler.Response {
	id, err := pathID(ctx, "id")
	if err != nil {
		return response.Error(err)
	}
	p, err := a.deps.Catalog.Get(ctx, id)
	if err != nil {
		return response.Error(err)
	}
	if !p.Active && !principal(ctx).IsAdmin() {
		return response.Error(catalog.ErrNotFound)
	}
	return response.JSON(p)
}

func (a *API) createProduct(ctx Context) handler.Response {
	var in catalog.Input
	if err := binder.JSON()(ctx.Request(), &in); err != nil {
		return response.Error(err)
	}
	p, err := a.deps.Catalog.Create(ctx, in)
	if err != nil {
		return response.Error(err)
	}
	return response.Created(p)
}

func (a *API) updateProduct(ctx Context) handler.Response {
	id, err := pathID(ctx, "id")
	if err != nil {
		return response.Error(err)
	}
	var in catalog.Input
	if err := binder.JSON()(ctx.Request(), &in); err != nil {
		return response.Error(err)
	}
	p, err := a.deps.Catalog.Update(ctx, id, in)
	if err != nil {
		return response.Error(err)
	}
	return response.JSON(p)
}

func (a *API) deleteProduct(ctx Context) handler.Response {
	id, err := pathID(ctx, "id")
	if err != nil {
		return response.Error(err)
	}
	if err := a.deps.Catalog.Delete(ctx, id); err != nil {
		return response.Error(err)
	}
	return response.NoContent()
}

func pathID(ctx Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Param(name))
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidID, err)
	}
	return id, nil
}
