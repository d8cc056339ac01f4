package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/servicehub/core/handler"
	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/core/response"
	"github.com/dmitrymomot/servicehub/core/session"
	"github.com/dmitrymomot/servicehub/core/sessiontransport"
	"github.com/dmitrymomot/servicehub/internal/identity"
)

// Resolver turns a session token into a principal.
type Resolver interface {
	Resolve(ctx context.Context, token string) (identity.Principal, session.Session[identity.SessionData], error)
}

// Handler serves the websocket endpoint.
type Handler struct {
	hub       *Hub
	resolver  Resolver
	transport sessiontransport.Transport
	cfg       Config
	logger    *slog.Logger
}

func NewHandler(hub *Hub, resolver Resolver, transport sessiontransport.Transport, cfg Config, log *slog.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		hub:       hub,
		resolver:  resolver,
		transport: transport,
		cfg:       cfg.withDefaults(),
		logger:    log.With(logger.Component("realtime")),
	}
}

// Serve authenticates the handshake with the same credential as HTTP and
// upgrades the connection. Without a valid session the client joins the
// public group only, or is rejected when anonymous access is disabled.
func (h *Handler) Serve(ctx handler.Context) handler.Response {
	principal, err := h.authenticate(ctx, ctx.Request())
	if err != nil {
		return response.Error(err)
	}
	if !principal.IsAuthenticated() && !h.cfg.AllowAnonymous {
		return response.Error(identity.ErrUnauthenticated)
	}

	return response.WebSocket(
		func(ctx context.Context, conn *websocket.Conn) error {
			return h.run(ctx, conn, principal)
		},
		response.WithWSAllowedOrigins(h.cfg.AllowedOrigins...),
		response.WithWSErrorHandler(func(ctx context.Context, err error) {
			h.logger.DebugContext(ctx, "websocket session ended with error", logger.Error(err))
		}),
	)
}

func (h *Handler) authenticate(ctx context.Context, r *http.Request) (identity.Principal, error) {
	token, err := h.transport.Extract(r)
	if err != nil {
		if errors.Is(err, sessiontransport.ErrNoToken) || errors.Is(err, sessiontransport.ErrInvalidToken) {
			return identity.Anonymous, nil
		}
		return identity.Anonymous, err
	}
	p, _, err := h.resolver.Resolve(ctx, token)
	if errors.Is(err, identity.ErrUnauthenticated) {
		return identity.Anonymous, nil
	}
	return p, err
}

func (h *Handler) run(ctx context.Context, conn *websocket.Conn, p identity.Principal) error {
	c := newClient(conn, p, h.cfg, h.logger)
	if err := h.hub.Register(c); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "shutting down"))
		return err
	}
	c.logger.DebugContext(ctx, "websocket connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writeLoop(ctx)
	}()

	c.readLoop(ctx)
	h.hub.Unregister(c)
	<-done

	c.logger.DebugContext(ctx, "websocket disconnected")
	return nil
}

// Endpoint adapts h to a router handler for context type C.
func Endpoint[C handler.Context](h *Handler) handler.HandlerFunc[C] {
	return func(ctx C) handler.Response {
		return h.Serve(ctx)
	}
}
