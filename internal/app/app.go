// Package app wires configuration, storage, services and transports into a
// runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/servicehub/core/cookie"
	"github.com/dmitrymomot/servicehub/core/event"
	"github.com/dmitrymomot/servicehub/core/event/redisbus"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/server"
	"github.com/dmitrymomot/servicehub/core/session"
	sessionmongo "github.com/dmitrymomot/servicehub/core/session/mongostore"
	"github.com/dmitrymomot/servicehub/core/session/redisstore"
	"github.com/dmitrymomot/servicehub/core/sessiontransport"
	"github.com/dmitrymomot/servicehub/integration/database/mongo"
	"github.com/dmitrymomot/servicehub/integration/database/redis"
	"github.com/dmitrymomot/servicehub/internal/account"
	"github.com/dmitrymomot/servicehub/internal/cart"
	"github.com/dmitrymomot/servicehub/internal/catalog"
	"github.com/dmitrymomot/servicehub/internal/httpapi"
	"github.com/dmitrymomot/servicehub/internal/identity"
	"github.com/dmitrymomot/servicehub/internal/order"
	"github.com/dmitrymomot/servicehub/internal/realtime"
	"github.com/dmitrymomot/servicehub/internal/stats"
	"github.com/dmitrymomot/servicehub/internal/store/memstore"
	"github.com/dmitrymomot/servicehub/internal/store/mongostore"
)

// repositories is implemented by memstore.Store and mongostore.Store.
type repositories interface {
	account.Repository
	catalog.Repository
	cart.Repository
	order.Repository
	stats.Repository
}

type eventBus interface {
	Publish(ctx context.Context, data []byte) error
	Events() <-chan []byte
	Close() error
}

type App struct {
	config    Config
	logger    *slog.Logger
	handler   http.Handler
	server    *server.Server
	sessions  *identity.Sessions
	hub       *realtime.Hub
	bus       eventBus
	processor *event.Processor
	closers   []func(context.Context) error
}

type Option func(*App) error

func WithLogger(log *slog.Logger) Option {
	return func(a *App) error {
		if log == nil {
			return errors.New("logger cannot be nil")
		}
		a.logger = log
		return nil
	}
}

// New connects to every backend cfg selects and builds the handler tree.
// Any failure here is fatal for the process.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	a := &App{config: cfg}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	if a.logger == nil {
		a.logger = NewLogger(cfg)
	}

	if err := a.build(ctx); err != nil {
		_ = a.close(context.Background())
		return nil, err
	}
	return a, nil
}

// NewLogger builds the root logger for cfg.Env.
func NewLogger(cfg Config) *slog.Logger {
	opts := []logger.Option{logger.WithDevelopment(cfg.Name)}
	if cfg.IsProduction() {
		opts = []logger.Option{logger.WithProduction(cfg.Name)}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err == nil && cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevel(level))
	}
	return logger.New(opts...)
}

func (a *App) build(ctx context.Context) error {
	cfg := a.config
	var readiness []func(context.Context) error

	var redisClient goredis.UniversalClient
	if cfg.needsRedis() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		readiness = append(readiness, redis.Healthcheck(client))
	}

	var db *mongodriver.Database
	if cfg.needsMongo() {
		client, err := mongo.New(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("connect mongodb: %w", err)
		}
		db = client.Database(cfg.Mongo.Database)
		a.closers = append(a.closers, client.Disconnect)
		readiness = append(readiness, mongo.Healthcheck(client))
	}

	repos, err := a.openRepositories(ctx, db)
	if err != nil {
		return err
	}

	sessions, err := a.openSessions(ctx, redisClient, db)
	if err != nil {
		return err
	}
	a.sessions = sessions

	bus, err := a.openEventBus(ctx, redisClient)
	if err != nil {
		return err
	}
	a.bus = bus
	a.closers = append(a.closers, func(context.Context) error { return bus.Close() })
	publisher := event.NewPublisher(bus, event.WithPublisherLogger(a.logger))

	cookieOpts := []cookie.Option{}
	if cfg.IsProduction() {
		cookieOpts = append(cookieOpts, cookie.WithSecure(true), cookie.WithSameSite(http.SameSiteNoneMode))
	}
	cookies, err := cookie.NewFromConfig(cfg.Cookie, cookieOpts...)
	if err != nil {
		return fmt.Errorf("cookie manager: %w", err)
	}
	transport := sessiontransport.NewFromConfig(cfg.Transport, cookies)

	accounts := account.NewService(repos, account.WithLogger(a.logger))
	products := catalog.NewService(repos, publisher, catalog.WithLogger(a.logger))
	carts := cart.NewService(repos, products, publisher, cart.WithLogger(a.logger))
	orders := order.NewService(repos, repos, publisher, order.WithLogger(a.logger))
	summaries := stats.NewService(repos)
	resolver := identity.NewResolver(sessions, a.logger)

	if cfg.Admin.Email != "" {
		if _, err := accounts.EnsureAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	a.hub = realtime.NewHub(a.logger)
	rtCfg := cfg.Realtime
	rtCfg.AllowedOrigins = cfg.API.CORS.AllowOrigins
	rt := realtime.NewHandler(a.hub, resolver, transport, rtCfg, a.logger)

	a.processor = event.NewProcessor(
		event.WithEventSource(bus),
		event.WithHandler(realtime.EventHandlers(a.hub)...),
		event.WithProcessorLogger(a.logger),
		event.WithFallbackHandler(func(ctx context.Context, evt event.Event) error {
			a.logger.DebugContext(ctx, "event without subscribers", logger.Event(evt.Name))
			return nil
		}),
	)
	readiness = append(readiness, a.processor.Healthcheck)

	a.handler = httpapi.New(cfg.API, httpapi.Deps{
		Accounts:  accounts,
		Catalog:   products,
		Carts:     carts,
		Orders:    orders,
		Stats:     summaries,
		Resolver:  resolver,
		Transport: transport,
		Realtime:  rt,
		Hub:       a.hub,
		Readiness: readiness,
		Logger:    a.logger,
	})

	srv, err := server.NewFromConfig(cfg.Server, server.WithLogger(a.logger))
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	a.server = srv
	return nil
}

func (a *App) openRepositories(ctx context.Context, db *mongodriver.Database) (repositories, error) {
	if a.config.DataStore == BackendMemory {
		a.logger.Warn("using in-memory data store, data is lost on restart")
		return memstore.New(), nil
	}
	repos := mongostore.New(db)
	if err := repos.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	return repos, nil
}

func (a *App) openSessions(ctx context.Context, rc goredis.UniversalClient, db *mongodriver.Database) (*identity.Sessions, error) {
	opts := session.FromConfig(a.config.Session)
	switch a.config.SessionStore {
	case BackendRedis:
		return session.NewManager[identity.SessionData](redisstore.New[identity.SessionData](rc), opts...), nil
	case BackendMongo:
		st := sessionmongo.New[identity.SessionData](db.Collection(sessionmongo.DefaultCollection))
		if err := st.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return session.NewManager[identity.SessionData](st, opts...), nil
	}
	return session.NewManager[identity.SessionData](session.NewMemoryStore[identity.SessionData](), opts...), nil
}

func (a *App) openEventBus(ctx context.Context, rc goredis.UniversalClient) (eventBus, error) {
	if a.config.EventBus == BackendMemory {
		return event.NewChannelBus(event.WithChannelLogger(a.logger)), nil
	}
	opts := append(redisbus.FromConfig(a.config.Events), redisbus.WithLogger(a.logger))
	bus, err := redisbus.New(ctx, rc, opts...)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	return bus, nil
}

// Handler exposes the HTTP handler tree.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP, consumes events and cleans sessions until ctx is done,
// then releases every backend.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(a.server.Run(ctx, a.handler))
	g.Go(a.processor.Run(ctx))

	cleanup := a.config.Session.CleanupInterval
	if a.config.SessionStore == BackendRedis {
		cleanup = 0
	}
	g.Go(a.sessions.RunCleanup(ctx, cleanup, a.logger))

	g.Go(func() error {
		<-ctx.Done()
		return a.hub.Close()
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := a.close(closeCtx); cerr != nil {
		a.logger.Error("failed to release resources", logger.Error(cerr))
	}
	return err
}

// close releases backends in reverse order of acquisition.
func (a *App) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
