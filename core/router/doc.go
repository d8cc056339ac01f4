// Package router provides a generic HTTP router built on the chi radix tree.
//
// Handlers receive a typed context and return a handler.Response; errors from
// either end up in a single ErrorHandler. Middlewares are typed as well:
//
//	r := router.New[*httpapi.Context](
//		router.WithContextFactory(httpapi.NewContext),
//		router.WithErrorHandler(response.JSONErrorHandler[*httpapi.Context]),
//	)
//	r.Use(middleware.RequestID[*httpapi.Context]())
//	r.Route("/api/cart", func(r router.Router[*httpapi.Context]) {
//		r.Use(middleware.RequireCustomer[*httpapi.Context]())
//		r.Get("/", h.getCart)
//	})
//
// Path parameters use chi syntax ({id}, {id:[0-9]+}, *) and are read with ctx.Param.
// Panics raised by handlers are recovered and passed to the error handler as a PanicError.
package router
