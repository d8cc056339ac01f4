// Package handler defines the typed handler contract shared by the router,
// response helpers and middleware.
//
// A handler receives a request context and returns a Response closure:
//
//	func getCart(ctx *httpapi.Context) handler.Response {
//		snap, err := carts.Snapshot(ctx, ctx.Principal().ID)
//		if err != nil {
//			return response.Error(err)
//		}
//		return response.JSON(snap)
//	}
//
// Middlewares wrap handlers and may short-circuit by returning their own Response.
package handler
