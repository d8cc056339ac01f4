package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrymomot/servicehub/core/handler"
)

// CORSConfig is an explicit origin allow-list. The same list is used for the
// websocket origin check.
type CORSConfig struct {
	AllowOrigins     []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"600"`
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
}

type corsPolicy struct {
	cfg           CORSConfig
	origins       map[string]bool
	wildcard      bool
	allowMethods  string
	allowHeaders  string
	exposeHeaders string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		}
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{
			"Accept",
			"Content-Type",
			"Origin",
			"Authorization",
			"X-Request-ID",
			"X-Webhook-Secret",
		}
	}
	if len(cfg.ExposeHeaders) == 0 {
		cfg.ExposeHeaders = []string{"X-Request-ID", "X-Session-Token"}
	}

	p := &corsPolicy{
		cfg:           cfg,
		origins:       make(map[string]bool, len(cfg.AllowOrigins)),
		allowMethods:  strings.Join(cfg.AllowMethods, ","),
		allowHeaders:  strings.Join(cfg.AllowHeaders, ","),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ","),
	}
	for _, o := range cfg.AllowOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			p.wildcard = true
		}
		p.origins[o] = true
	}
	return p
}

// allowedOrigin returns the value for Access-Control-Allow-Origin.
func (p *corsPolicy) allowedOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	if p.origins[strings.TrimRight(origin, "/")] {
		return origin, true
	}
	if p.wildcard {
		if p.cfg.AllowCredentials {
			// Credentialed requests cannot use "*"; echo the origin instead.
			return origin, true
		}
		return "*", true
	}
	return "", false
}

// serve writes CORS headers. It reports true when r was a preflight request
// and the response is complete.
func (p *corsPolicy) serve(w http.ResponseWriter, r *http.Request) bool {
	origin, allowed := p.allowedOrigin(r.Header.Get("Origin"))
	h := w.Header()
	h.Add("Vary", "Origin")

	preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
	if preflight {
		h.Add("Vary", "Access-Control-Request-Method")
		h.Add("Vary", "Access-Control-Request-Headers")
		if !allowed || !slices.Contains(p.cfg.AllowMethods, r.Header.Get("Access-Control-Request-Method")) {
			w.WriteHeader(http.StatusForbidden)
			return true
		}
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", p.allowMethods)
		h.Set("Access-Control-Allow-Headers", p.allowHeaders)
		if p.cfg.AllowCredentials && origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if p.cfg.MaxAge > 0 {
			h.Set("Access-Control-Max-Age", strconv.Itoa(p.cfg.MaxAge))
		}
		w.WriteHeader(http.StatusNoContent)
		return true
	}

	if allowed {
		h.Set("Access-Control-Allow-Origin", origin)
		if p.cfg.AllowCredentials && origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if p.exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", p.exposeHeaders)
		}
	}
	return false
}

// CORS wraps an http.Handler. It sits in front of the router so that
// preflight requests are answered even for routes without an OPTIONS handler.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p.serve(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware applies the same policy as a router middleware.
func CORSMiddleware[C handler.Context](cfg CORSConfig) handler.Middleware[C] {
	p := newCORSPolicy(cfg)
	return func(next handler.HandlerFunc[C]) handler.HandlerFunc[C] {
		return func(ctx C) handler.Response {
			if p.serve(ctx.ResponseWriter(), ctx.Request()) {
				return func(http.ResponseWriter, *http.Request) error { return nil }
			}
			return next(ctx)
		}
	}
}
