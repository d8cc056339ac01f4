package handler

import (
	"context"
	"net/http"
)

// Context is the request context passed to every handler.
// It embeds context.Context so it can be handed to stores and services directly.
type Context interface {
	context.Context
	Request() *http.Request
	ResponseWriter() http.ResponseWriter
	Param(key string) string
	SetValue(key, val any)
}
