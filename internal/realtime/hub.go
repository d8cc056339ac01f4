package realtime

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dmitrymomot/servicehub/core/logger"
	"github.com/dmitrymomot/servicehub/internal/identity"
)

// Group names a broadcast audience.
type Group string

const (
	// GroupPublic holds every connection, signed in or not.
	GroupPublic Group = "public"
	// GroupAdmins holds admin connections.
	GroupAdmins Group = "admins"
)

var ErrHubClosed = errors.New("realtime hub is closed")

// Hub is the registry of the connections held by this process.
// Sends never block: a client whose buffer is full misses the message.
type Hub struct {
	mu      sync.RWMutex
	owners  map[string]map[*Client]struct{}
	groups  map[Group]map[*Client]struct{}
	closed  bool
	logger  *slog.Logger
	sent    atomic.Int64
	dropped atomic.Int64
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		owners: make(map[string]map[*Client]struct{}),
		groups: map[Group]map[*Client]struct{}{
			GroupPublic: {},
			GroupAdmins: {},
		},
		logger: log.With(logger.Component("realtime")),
	}
}

// Register adds c to its owner's set and its groups.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHubClosed
	}

	if c.principal.IsAuthenticated() {
		key := c.principal.String()
		set, ok := h.owners[key]
		if !ok {
			set = make(map[*Client]struct{})
			h.owners[key] = set
		}
		set[c] = struct{}{}
	}
	h.groups[GroupPublic][c] = struct{}{}
	if c.principal.IsAdmin() {
		h.groups[GroupAdmins][c] = struct{}{}
	}
	return nil
}

// Unregister removes c and closes its send queue. Repeated calls are no-ops.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(c)
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.groups[GroupPublic][c]; !ok {
		return
	}
	key := c.principal.String()
	if set, ok := h.owners[key]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.owners, key)
		}
	}
	for _, members := range h.groups {
		delete(members, c)
	}
	close(c.send)
}

// Deliver sends msg to the customer's connections and to every admin.
func (h *Hub) Deliver(customerID uuid.UUID, msg Message) {
	frame, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.owners[identity.Customer(customerID).String()] {
		h.enqueue(c, msg.Event, frame)
	}
	for c := range h.groups[GroupAdmins] {
		h.enqueue(c, msg.Event, frame)
	}
}

// DeliverToCustomer sends msg to the customer's connections only.
func (h *Hub) DeliverToCustomer(customerID uuid.UUID, msg Message) {
	frame, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.owners[identity.Customer(customerID).String()] {
		h.enqueue(c, msg.Event, frame)
	}
}

// Broadcast sends msg to every member of group.
func (h *Hub) Broadcast(group Group, msg Message) {
	frame, ok := h.encode(msg)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.groups[group] {
		h.enqueue(c, msg.Event, frame)
	}
}

func (h *Hub) encode(msg Message) ([]byte, bool) {
	frame, err := msg.encode()
	if err != nil {
		h.logger.Error("failed to encode realtime message", logger.Event(msg.Event), logger.Error(err))
		return nil, false
	}
	return frame, true
}

// enqueue must run under h.mu so that send is not closed concurrently.
func (h *Hub) enqueue(c *Client, event string, frame []byte) {
	select {
	case c.send <- frame:
		h.sent.Add(1)
	default:
		h.dropped.Add(1)
		h.logger.Warn("realtime buffer full, message dropped",
			logger.Event(event), slog.String("client", c.principal.String()), logger.ID("conn_id", c.id.String()))
	}
}

// Stats is a point-in-time view of the registry.
type Stats struct {
	Connections int   `json:"connections"`
	Identities  int   `json:"identities"`
	Admins      int   `json:"admins"`
	Anonymous   int   `json:"anonymous"`
	Sent        int64 `json:"sent"`
	Dropped     int64 `json:"dropped"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	anonymous := 0
	for c := range h.groups[GroupPublic] {
		if !c.principal.IsAuthenticated() {
			anonymous++
		}
	}
	return Stats{
		Connections: len(h.groups[GroupPublic]),
		Identities:  len(h.owners),
		Admins:      len(h.groups[GroupAdmins]),
		Anonymous:   anonymous,
		Sent:        h.sent.Load(),
		Dropped:     h.dropped.Load(),
	}
}

// Close unregisters every client, which makes their writers send a close
// frame and exit. Later Register calls fail with ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for c := range h.groups[GroupPublic] {
		h.remove(c)
	}
	return nil
}
