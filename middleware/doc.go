// Package middleware provides HTTP middleware for the generic router.
//
// Request plumbing:
//
//	r.Use(
//		middleware.RequestID[*Context](),
//		middleware.ClientIP[*Context](),
//		middleware.Logging[*Context](log),
//		middleware.SecurityHeaders[*Context](middleware.APISecurity),
//	)
//
// CORS wraps the whole router as an http.Handler because preflight requests
// must be answered before routing:
//
//	h := middleware.CORS(corsCfg)(r)
//
// Identity stores the caller's principal in the request context; Require
// guards a route group with a predicate on that principal:
//
//	r.Use(middleware.Identity(middleware.IdentityConfig[*Context, identity.Principal]{
//		Resolve: resolveFromRequest,
//	}))
//	admin := r.With(middleware.Require[*Context](identity.Principal.RequireAdmin))
package middleware
