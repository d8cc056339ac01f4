package handler

import "net/http"

// Response renders an HTTP response. Returning a non-nil error hands control
// to the router's ErrorHandler.
type Response func(w http.ResponseWriter, r *http.Request) error

// HandlerFunc handles a request using a typed context and returns the response to render.
type HandlerFunc[C Context] func(ctx C) Response

// ErrorHandler renders errors returned by handlers and responses.
type ErrorHandler[C Context] func(ctx C, err error)

// Middleware wraps a HandlerFunc with additional behavior.
type Middleware[C Context] func(next HandlerFunc[C]) HandlerFunc[C]
