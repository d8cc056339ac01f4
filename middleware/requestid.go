package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/handler"
)

const RequestIDHeader = "X-Request-ID"

type requestIDContextKey struct{}

// RequestID assigns every request an id, reusing a client-supplied
// X-Request-ID when present, and echoes it in the response.
func RequestID[C handler.Context]() handler.Middleware[C] {
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			id := ctx.Request().Header.Get(RequestIDHeader)
			if id == "" || len(id) > 128 {
				id = uuid.New().String()
			}
			ctx.SetValue(requestIDContextKey{}, id)
			ctx.ResponseWriter().Header().Set(RequestIDHeader, id)
			return next(ctx)
		}
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey{}).(string)
	return id, ok
}

// RequestIDFromRequest is GetRequestID for plain http handlers.
func RequestIDFromRequest(r *http.Request) string {
	id, _ := GetRequestID(r.Context())
	return id
}
