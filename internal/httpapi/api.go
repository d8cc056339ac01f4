// Package httpapi is the JSON HTTP surface of servicehub.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/health"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/router"
	"github.com/dmitrymomot/servicehub/core/sessiontransport"
	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/realtime"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/middleware"
)

// Context is the request context every route receives.
type Context = *router.Context

// Config holds the HTTP-facing settings.
type Config struct {
	Message       string `env:"API_MESSAGE" envDefault:"Shivalik Service Hub Backend API"`
	Version       string `env:"APP_VERSION" envDefault:"1.0.0"`
	WebhookSecret string `env:"PAYMENT_WEBHOOK_SECRET"`
	HSTS          bool   `env:"HTTP_HSTS" envDefault:"false"`
	CORS          middleware.CORSConfig
}

// Deps are the services behind the routes.
type Deps struct {
	Accounts  *account.Service
	Catalog   *catalog.Service
	Carts     *cart.Service
	Orders    *order.Service
	Stats     *stats.Service
	Resolver  *identity.Resolver
	Transport sessiontransport.Transport
	Realtime  *realtime.Handler
	Hub       *realtime.Hub
	Readiness []func(context.Context) error
	Logger    *slog.Logger
	Now       func() time.Time
}

type API struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
	now  func() time.Time
}

// New builds the routes and wraps them in CORS, which must see preflight
// requests before routing.
func New(cfg Config, deps Deps) http.Handler {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	a := &API{cfg: cfg, deps: deps, log: log, now: deps.Now}
	if a.now == nil {
		a.now = time.Now
	}

	security := middleware.APISecurity
	if cfg.HSTS {
		security = security.WithHSTS()
	}

	r := router.New[Context](
		router.WithErrorHandler(ErrorHandler[Context](log)),
		router.WithLogger[Context](log),
		router.WithMiddleware(
			middleware.RequestID[Context](),
			middleware.ClientIP[Context](),
			middleware.LoggingWithConfig[Context](middleware.LoggingConfig{
				Logger: log,
				Skip:   func(r *http.Request) bool { return r.URL.Path == "/health" },
			}),
			middleware.SecurityHeaders[Context](security),
		),
	)

	r.Get("/", a.root)
	r.Get("/health", health.Liveness[Context])
	r.Get("/health/ready", health.Readiness[Context](log, deps.Readiness...))
	if deps.Realtime != nil {
		r.Get("/ws", realtime.Endpoint[Context](deps.Realtime))
	}

	r.Route("/api", func(api router.Router[Context]) {
		api.Use(middleware.Identity(middleware.IdentityConfig[Context, identity.Principal]{
			Resolve: a.resolve,
			Logger:  log,
		}))

		api.Route("/auth", func(r router.Router[Context]) { a.adminAuthRoutes(r) })
		api.Route("/user-auth", func(r router.Router[Context]) { a.customerAuthRoutes(r) })
		api.Route("/products", func(r router.Router[Context]) { a.productRoutes(r) })
		api.Route("/cart", func(r router.Router[Context]) { a.cartRoutes(r) })
		api.Route("/payment", func(r router.Router[Context]) { a.paymentRoutes(r) })
		api.Route("/stats", func(r router.Router[Context]) { a.statsRoutes(r) })
		api.Route("/admin", func(r router.Router[Context]) { a.adminRoutes(r) })
	})

	return middleware.CORS(cfg.CORS)(r)
}

type rootResponse struct {
	Message string `json:"message"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

func (a *API) root(Context) handler.Response {
	return response.JSON(rootResponse{Message: a.cfg.Message, Version: a.cfg.Version, Status: "running"})
}

// resolve reads the session credential. Absent, stale and tampered
// credentials make the caller anonymous; store failures abort the request.
func (a *API) resolve(ctx Context) (identity.Principal, error) {
	token, err := a.deps.Transport.Extract(ctx.Request())
	if err != nil {
		if errors.Is(err, sessiontransport.ErrNoToken) || errors.Is(err, sessiontransport.ErrInvalidToken) {
			return identity.Anonymous, nil
		}
		return identity.Anonymous, err
	}
	p, _, err := a.deps.Resolver.Resolve(ctx, token)
	if errors.Is(err, identity.ErrUnauthenticated) {
		return identity.Anonymous, nil
	}
	return p, err
}

func principal(ctx Context) identity.Principal {
	p, _ := middleware.GetIdentity[identity.Principal](ctx)
	return p
}

func requireCustomer() handler.Middleware[Context] {
	return middleware.Require[Context](identity.Principal.RequireCustomer)
}

func requireAdmin() handler.Middleware[Context] {
	return middleware.Require[Context](identity.Principal.RequireAdmin)
}
