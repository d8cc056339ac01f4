package middleware

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/response"
)

type identityKey struct{}

// IdentityConfig wires request authentication.
//
// Resolve returns the principal for the request. It must return the
// anonymous principal with a nil error when the client is simply not logged
// in; any error aborts the request and is rendered by the error handler.
type IdentityConfig[C handler.Context, P any] struct {
	Resolve func(ctx C) (P, error)
	Logger  *slog.Logger
}

// Identity resolves the caller once per request and stores the principal in the context.
func Identity[C handler.Context, P any](cfg IdentityConfig[C, P]) handler.Middleware[C] {
	if cfg.Resolve == nil {
		panic("identity middleware: resolver is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			p, err := cfg.Resolve(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return response.Error(ctxErr)
				}
				cfg.Logger.ErrorContext(ctx, "failed to resolve identity", logger.Error(err))
				return response.Error(err)
			}
			ctx.SetValue(identityKey{}, p)
			return next(ctx)
		}
	}
}

// GetIdentity returns the principal stored by Identity.
func GetIdentity[P any](ctx context.Context) (P, bool) {
	p, ok := ctx.Value(identityKey{}).(P)
	return p, ok
}

// Require runs check against the stored principal and rejects the request
// with its error. Requests that never passed through Identity are rejected
// with 401.
func Require[C handler.Context, P any](check func(P) error) handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			p, ok := GetIdentity[P](ctx)
			if !ok {
				return response.Error(response.ErrUnauthorized)
			}
			if err := check(p); err != nil {
				return response.Error(err)
			}
			return next(ctx)
		}
	}
}
