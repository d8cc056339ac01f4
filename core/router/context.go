package router

import (
	"context"
	"net/http"
	"time"
)

// Context is the default context implementation that delegates to the request's context.
type Context struct {
	w      http.ResponseWriter
	r      *http.Request
	params map[string]string
}

// NewContext builds a Context. It matches the signature expected by WithContextFactory
// so custom contexts can embed it.
func NewContext(w http.ResponseWriter, r *http.Request, params map[string]string) *Context {
	return &Context{w: w, r: r, params: params}
}

func (c *Context) Deadline() (deadline time.Time, ok bool) { return c.r.Context().Deadline() }
func (c *Context) Done() <-chan struct{}                   { return c.r.Context().Done() }
func (c *Context) Err() error                              { return c.r.Context().Err() }
func (c *Context) Value(key any) any                       { return c.r.Context().Value(key) }

// Request returns the HTTP request associated with this context.
func (c *Context) Request() *http.Request {
	return c.r
}

// ResponseWriter returns the HTTP response writer associated with this context.
func (c *Context) ResponseWriter() http.ResponseWriter {
	return c.w
}

// Param returns the value of the URL parameter for the given key.
func (c *Context) Param(key string) string {
	if c.params == nil {
		return ""
	}
	return c.params[key]
}

// SetValue stores val in the request context so later middlewares and the handler see it.
func (c *Context) SetValue(key, val any) {
	c.r = c.r.WithContext(context.WithValue(c.r.Context(), key, val))
}
