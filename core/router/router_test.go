package router_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/router"
)

func text(s string) handler.Response {
	return func(w http.ResponseWriter, r *http.Request) error {
		_, err := w.Write([]byte(s))
		return err
	}
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouterHTTPMethods(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/res", func(ctx *router.Context) handler.Response { return text("get") })
	r.Post("/res", func(ctx *router.Context) handler.Response { return text("post") })
	r.Put("/res", func(ctx *router.Context) handler.Response { return text("put") })
	r.Delete("/res", func(ctx *router.Context) handler.Response { return text("delete") })
	r.Patch("/res", func(ctx *router.Context) handler.Response { return text("patch") })

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		w := serve(t, r, method, "/res")
		assert.Equal(t, http.StatusOK, w.Code, method)
		assert.Equal(t, strings.ToLower(method), w.Body.String())
	}
}

func TestRouterParams(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/orders/{id}/items/{item}", func(ctx *router.Context) handler.Response {
		return text(ctx.Param("id") + ":" + ctx.Param("item"))
	})

	w := serve(t, r, http.MethodGet, "/orders/42/items/7")
	assert.Equal(t, "42:7", w.Body.String())
}

func TestRouterNotFoundAndMethodNotAllowed(t *testing.T) {
	t.Parallel()

	var got []error
	r := router.New[*router.Context](router.WithErrorHandler(func(ctx *router.Context, err error) {
		got = append(got, err)
		ctx.ResponseWriter().WriteHeader(http.StatusTeapot)
	}))
	r.Get("/only-get", func(ctx *router.Context) handler.Response { return text("ok") })

	serve(t, r, http.MethodGet, "/missing")
	serve(t, r, http.MethodPost, "/only-get")

	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0], router.ErrNotFound)
	assert.ErrorIs(t, got[1], router.ErrMethodNotAllowed)
}

func TestRouterDefaultErrorHandlerStatus(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/boom", func(ctx *router.Context) handler.Response {
		return func(w http.ResponseWriter, r *http.Request) error { return errors.New("boom") }
	})

	assert.Equal(t, http.StatusNotFound, serve(t, r, http.MethodGet, "/nope").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(t, r, http.MethodGet, "/boom").Code)
}

func TestRouterMiddlewareOrderAndScope(t *testing.T) {
	t.Parallel()

	var trace []string
	mw := func(name string) handler.Middleware[*router.Context] {
		return func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
			return func(ctx *router.Context) handler.Response {
				trace = append(trace, name)
				return next(ctx)
			}
		}
	}

	r := router.New[*router.Context]()
	r.Use(mw("root"))
	r.Get("/public", func(ctx *router.Context) handler.Response { return text("public") })
	r.Group(func(g router.Router[*router.Context]) {
		g.Use(mw("group"))
		g.Get("/private", func(ctx *router.Context) handler.Response { return text("private") })
	})
	r.Route("/api", func(sub router.Router[*router.Context]) {
		sub.Use(mw("api"))
		sub.With(mw("with")).Get("/x", func(ctx *router.Context) handler.Response { return text("x") })
	})

	serve(t, r, http.MethodGet, "/public")
	assert.Equal(t, []string{"root"}, trace)

	trace = nil
	serve(t, r, http.MethodGet, "/private")
	assert.Equal(t, []string{"root", "group"}, trace)

	trace = nil
	w := serve(t, r, http.MethodGet, "/api/x")
	assert.Equal(t, "x", w.Body.String())
	assert.Equal(t, []string{"root", "api", "with"}, trace)
}

func TestRouterUseAfterRoutesPanics(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	r.Get("/", func(ctx *router.Context) handler.Response { return text("ok") })
	assert.Panics(t, func() { r.Use() })
}

func TestRouterRecoversPanics(t *testing.T) {
	t.Parallel()

	var perr router.PanicError
	r := router.New[*router.Context](router.WithErrorHandler(func(ctx *router.Context, err error) {
		errors.As(err, &perr)
		ctx.ResponseWriter().WriteHeader(http.StatusInternalServerError)
	}))
	r.Get("/panic", func(ctx *router.Context) handler.Response { panic("kaboom") })

	w := serve(t, r, http.MethodGet, "/panic")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotNil(t, perr)
	assert.Equal(t, "kaboom", perr.Value())
	assert.NotEmpty(t, perr.Stack())
}

func TestRouterNilResponse(t *testing.T) {
	t.Parallel()

	var got error
	r := router.New[*router.Context](router.WithErrorHandler(func(ctx *router.Context, err error) { got = err }))
	r.Get("/nil", func(ctx *router.Context) handler.Response { return nil })

	serve(t, r, http.MethodGet, "/nil")
	assert.ErrorIs(t, got, router.ErrNilResponse)
}

func TestRouterSetValueVisibleToHandler(t *testing.T) {
	t.Parallel()

	type key struct{}
	r := router.New[*router.Context]()
	r.Use(func(next handler.HandlerFunc[*router.Context]) handler.HandlerFunc[*router.Context] {
		return func(ctx *router.Context) handler.Response {
			ctx.SetValue(key{}, "from-middleware")
			return next(ctx)
		}
	})
	r.Get("/", func(ctx *router.Context) handler.Response {
		v, _ := ctx.Value(key{}).(string)
		return text(v)
	})

	assert.Equal(t, "from-middleware", serve(t, r, http.MethodGet, "/").Body.String())
}

func TestRouterRoutesAndMount(t *testing.T) {
	t.Parallel()

	sub := router.New[*router.Context]()
	sub.Get("/ping", func(ctx *router.Context) handler.Response { return text("pong") })

	r := router.New[*router.Context]()
	r.Get("/a", func(ctx *router.Context) handler.Response { return text("a") })
	r.Mount("/sub", sub)

	assert.Equal(t, "pong", serve(t, r, http.MethodGet, "/sub/ping").Body.String())

	var patterns []string
	for _, route := range r.Routes() {
		patterns = append(patterns, route.Method+" "+route.Pattern)
	}
	assert.Contains(t, patterns, "GET /a")
}

func TestRouterMethodValidation(t *testing.T) {
	t.Parallel()

	r := router.New[*router.Context]()
	assert.Panics(t, func() { r.Method("/x", nil) })
	assert.Panics(t, func() { r.Method("/x", func(ctx *router.Context) handler.Response { return nil }, "BREW") })
	assert.Panics(t, func() { r.Get("no-slash", func(ctx *router.Context) handler.Response { return nil }) })
}
