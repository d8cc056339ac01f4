package middleware

import (
	"context"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/pkg/clientip"
)

type clientIPContextKey struct{}

// ClientIP resolves the client address once per request and stores it in the context.
func ClientIP[C handler.Context]() handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			ctx.SetValue(clientIPContextKey{}, clientip.GetIP(ctx.Request()))
			return next(ctx)
		}
	}
}

// GetClientIP returns the address stored by ClientIP.
func GetClientIP(ctx context.Context) (string, bool) {
	ip, ok := ctx.Value(clientIPContextKey{}).(string)
	return ip, ok
}
