package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/servicehub/core/handler"
)

// mux is the private implementation of Router over a chi radix tree.
// Middlewares are chained per route at registration time, so inline groups
// created with With or Group only affect the routes they register.
type mux[C handler.Context] struct {
	r            chi.Router
	middlewares  []handler.Middleware[C]
	errorHandler handler.ErrorHandler[C]
	newContext   func(http.ResponseWriter, *http.Request, map[string]string) C
	logger       *slog.Logger
	routed       bool
}

func newMux[C handler.Context](opts ...Option[C]) *mux[C] {
	m := &mux[C]{
		r:            chi.NewRouter(),
		errorHandler: defaultErrorHandler[C],
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.newContext == nil {
		m.newContext = func(w http.ResponseWriter, r *http.Request, params map[string]string) C {
			var zero C
			if _, ok := any(zero).(*Context); ok {
				return any(NewContext(w, r, params)).(C)
			}
			panic(ErrNoContextFactory)
		}
	}

	m.r.NotFound(m.failWith(ErrNotFound))
	m.r.MethodNotAllowed(m.failWith(ErrMethodNotAllowed))

	return m
}

// child returns a router sharing the underlying tree, inheriting a copy of the middleware stack.
func (m *mux[C]) child(r chi.Router, extra ...handler.Middleware[C]) *mux[C] {
	mws := make([]handler.Middleware[C], 0, len(m.middlewares)+len(extra))
	mws = append(mws, m.middlewares...)
	mws = append(mws, extra...)
	return &mux[C]{
		r:            r,
		middlewares:  mws,
		errorHandler: m.errorHandler,
		newContext:   m.newContext,
		logger:       m.logger,
	}
}

// ServeHTTP implements http.Handler interface.
func (m *mux[C]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(*responseWriter); !ok {
		w = newResponseWriter(w)
	}
	m.r.ServeHTTP(w, r)
}

func (m *mux[C]) Get(pattern string, h handler.HandlerFunc[C])     { m.handle(http.MethodGet, pattern, h) }
func (m *mux[C]) Post(pattern string, h handler.HandlerFunc[C])    { m.handle(http.MethodPost, pattern, h) }
func (m *mux[C]) Put(pattern string, h handler.HandlerFunc[C])     { m.handle(http.MethodPut, pattern, h) }
func (m *mux[C]) Delete(pattern string, h handler.HandlerFunc[C])  { m.handle(http.MethodDelete, pattern, h) }
func (m *mux[C]) Patch(pattern string, h handler.HandlerFunc[C])   { m.handle(http.MethodPatch, pattern, h) }
func (m *mux[C]) Head(pattern string, h handler.HandlerFunc[C])    { m.handle(http.MethodHead, pattern, h) }
func (m *mux[C]) Options(pattern string, h handler.HandlerFunc[C]) { m.handle(http.MethodOptions, pattern, h) }

// Handle registers a handler for all HTTP methods.
func (m *mux[C]) Handle(pattern string, h handler.HandlerFunc[C]) {
	m.handle("", pattern, h)
}

// Method registers a handler for one or more specific HTTP methods.
func (m *mux[C]) Method(pattern string, h handler.HandlerFunc[C], methods ...string) {
	if len(methods) == 0 {
		panic(fmt.Errorf("%w: no methods provided", ErrInvalidMethod))
	}

	seen := make(map[string]bool, len(methods))
	for _, method := range methods {
		method = strings.ToUpper(method)
		if !validMethod(method) {
			panic(fmt.Errorf("%w: %s", ErrInvalidMethod, method))
		}
		if seen[method] {
			continue
		}
		seen[method] = true
		m.handle(method, pattern, h)
	}
}

// Use appends middleware to the router.
func (m *mux[C]) Use(middlewares ...handler.Middleware[C]) {
	if m.routed {
		panic("router: all middlewares must be defined before routes on a mux")
	}
	m.middlewares = append(m.middlewares, middlewares...)
}

// With creates a new inline router with additional middleware.
func (m *mux[C]) With(middlewares ...handler.Middleware[C]) Router[C] {
	return m.child(m.r, middlewares...)
}

// Group creates a new inline router for grouping routes.
func (m *mux[C]) Group(fn func(r Router[C])) Router[C] {
	im := m.child(m.r)
	if fn != nil {
		fn(im)
	}
	return im
}

// Route creates a new sub-router mounted at the given pattern.
func (m *mux[C]) Route(pattern string, fn func(r Router[C])) Router[C] {
	if fn == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilSubrouter, pattern))
	}

	var sub *mux[C]
	m.r.Route(pattern, func(cr chi.Router) {
		sub = m.child(cr)
		fn(sub)
	})
	return sub
}

// Mount attaches any http.Handler at the given pattern. Mounted routers keep
// their own middleware stacks.
func (m *mux[C]) Mount(pattern string, sub http.Handler) {
	if sub == nil {
		panic(fmt.Errorf("%w on '%s'", ErrNilRouter, pattern))
	}
	m.r.Mount(pattern, sub)
}

// Routes returns all registered routes.
func (m *mux[C]) Routes() []Route {
	var routes []Route
	_ = chi.Walk(m.r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, Route{Method: method, Pattern: route})
		return nil
	})
	return routes
}

func (m *mux[C]) handle(method, pattern string, fn handler.HandlerFunc[C]) {
	if len(pattern) == 0 || pattern[0] != '/' {
		panic(fmt.Errorf("%w: '%s'", ErrInvalidPattern, pattern))
	}
	m.routed = true

	h := fn
	if len(m.middlewares) > 0 {
		h = chain(m.middlewares, fn)
	}

	if method == "" {
		m.r.Handle(pattern, m.adapt(h))
		return
	}
	m.r.Method(method, pattern, m.adapt(h))
}

// adapt turns a typed handler into an http.Handler: it builds the context,
// renders the response and routes every error to the error handler.
func (m *mux[C]) adapt(h handler.HandlerFunc[C]) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww, ok := w.(*responseWriter)
		if !ok {
			ww = newResponseWriter(w)
		}

		ctx := m.newContext(ww, r, urlParams(r))
		defer m.recoverPanic(ctx, ww, r)

		resp := h(ctx)
		if resp == nil {
			m.errorHandler(ctx, ErrNilResponse)
			return
		}

		if err := resp(ww, ctx.Request()); err != nil {
			m.errorHandler(ctx, err)
		}
	})
}

func (m *mux[C]) failWith(err error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww, ok := w.(*responseWriter)
		if !ok {
			ww = newResponseWriter(w)
		}
		m.errorHandler(m.newContext(ww, r, nil), err)
	}
}

func (m *mux[C]) recoverPanic(ctx C, ww *responseWriter, r *http.Request) {
	p := recover()
	if p == nil {
		return
	}

	perr := &panicError{value: p, stack: debug.Stack()}
	if ww.Written() {
		m.logger.Error("panic after response written",
			"value", perr.value,
			"stack", string(perr.stack),
			"path", r.URL.Path,
			"method", r.Method,
			"status", ww.Status(),
		)
		return
	}
	m.errorHandler(ctx, perr)
}

func urlParams(r *http.Request) map[string]string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || len(rctx.URLParams.Keys) == 0 {
		return nil
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		if i < len(rctx.URLParams.Values) {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return params
}

func validMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// chain builds a single handler from a middleware stack and endpoint.
// The first middleware runs first.
func chain[C handler.Context](middlewares []handler.Middleware[C], endpoint handler.HandlerFunc[C]) handler.HandlerFunc[C] {
	h := endpoint
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
