package realtime

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/internal/identity"
)

// Client is one websocket connection. The hub owns send: it is closed on
// Unregister, which ends the write loop.
type Client struct {
	id        uuid.UUID
	principal identity.Principal
	conn      *websocket.Conn
	send      chan []byte
	cfg       Config
	logger    *slog.Logger
}

func newClient(conn *websocket.Conn, p identity.Principal, cfg Config, log *slog.Logger) *Client {
	id := uuid.New()
	return &Client{
		id:        id,
		principal: p,
		conn:      conn,
		send:      make(chan []byte, cfg.SendBuffer),
		cfg:       cfg,
		logger:    log.With(logger.ID("conn_id", id.String()), slog.String("client", p.String())),
	}
}

func (c *Client) Principal() identity.Principal { return c.principal }

// readLoop consumes inbound frames until the peer goes away or misses a pong.
// Clients only talk to the server through HTTP, so payloads are discarded.
func (c *Client) readLoop(ctx context.Context) {
	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.DebugContext(ctx, "websocket read failed", logger.Error(err))
			}
			return
		}
	}
}

// writeLoop drains send and keeps the connection alive with pings. It
// returns once send is closed or a write fails.
func (c *Client) writeLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				_ = c.conn.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logWriteError(ctx, err)
				_ = c.conn.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logWriteError(ctx, err)
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (c *Client) logWriteError(ctx context.Context, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	c.logger.DebugContext(ctx, "websocket write failed", logger.Error(err))
}
