package response

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/servicehub/core/handler"
)

type wsConfig struct {
	upgrader *websocket.Upgrader
	onError  func(context.Context, error)
}

// WebSocketOption configures the upgrade performed by WebSocket.
type WebSocketOption func(*wsConfig)

func WithWSReadBuffer(size int) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.ReadBufferSize = size
	}
}

func WithWSWriteBuffer(size int) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.WriteBufferSize = size
	}
}

func WithWSHandshakeTimeout(timeout time.Duration) WebSocketOption {
	return func(c *wsConfig) {
		c.upgrader.HandshakeTimeout = timeout
	}
}

// WithWSAllowedOrigins accepts handshakes whose Origin header is in the list.
// Requests without an Origin header (non-browser clients) are accepted.
func WithWSAllowedOrigins(origins ...string) WebSocketOption {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(c *wsConfig) {
		c.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := allowed["*"]; ok {
				return true
			}
			_, ok := allowed[strings.TrimRight(origin, "/")]
			return ok
		}
	}
}

func WithWSErrorHandler(fn func(context.Context, error)) WebSocketOption {
	return func(c *wsConfig) {
		c.onError = fn
	}
}

// WebSocket upgrades the connection and runs messageHandler until it returns.
// The connection is closed afterwards. Upgrade failures are reported to the
// error hook only: the upgrader has already written the HTTP error.
func WebSocket(messageHandler func(context.Context, *websocket.Conn) error, opts ...WebSocketOption) handler.Response {
	cfg := &wsConfig{
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) error {
		conn, err := cfg.upgrader.Upgrade(w, r, nil)
		if err != nil {
			if cfg.onError != nil {
				cfg.onError(r.Context(), err)
			}
			return nil
		}
		defer func() { _ = conn.Close() }()

		if err := messageHandler(r.Context(), conn); err != nil && cfg.onError != nil {
			cfg.onError(r.Context(), err)
		}
		return nil
	}
}
