package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"boatnav/internal/domain/trip"
	"boatnav/internal/general/contracts"
	"boatnav/internal/general/logger"
	"boatnav/internal/ports"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	readTimeout      = 60 * time.Second
	pingEvery        = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the dashboard is served from another origin during development
	CheckOrigin: func(*http.Request) bool { return true },
}

// MessageHandler processes one inbound dashboard message of a registered type.
type MessageHandler func(ctx context.Context, data json.RawMessage) error

// Hub fans dashboard events out to every connected websocket client.
type Hub struct {
	logger   *logger.Logger
	mu       sync.RWMutex
	clients  map[string]*client
	handlers map[string]MessageHandler
	greeting func() []contracts.WSEvent
	now      func() time.Time
}

var _ ports.Notifier = (*Hub)(nil)

func NewHub(logger *logger.Logger) *Hub {
	return &Hub{
		logger:   logger,
		clients:  make(map[string]*client),
		handlers: make(map[string]MessageHandler),
		now:      time.Now,
	}
}

// Handle registers fn for inbound messages of type msgType.
func (hub *Hub) Handle(msgType string, fn MessageHandler) {
	hub.mu.Lock()
	hub.handlers[msgType] = fn
	hub.mu.Unlock()
}

// OnConnect sets the events sent to each client right after it connects.
func (hub *Hub) OnConnect(fn func() []contracts.WSEvent) {
	hub.mu.Lock()
	hub.greeting = fn
	hub.mu.Unlock()
}

// Notify logs a user-facing notification and broadcasts it.
func (hub *Hub) Notify(ctx context.Context, n trip.Notification) {
	if n.TripID != "" {
		ctx = hub.logger.WithTripID(ctx, n.TripID)
	}
	hub.logger.Info(ctx, "notification", n.Message, map[string]any{"level": n.Level, "code": n.Code})
	hub.Broadcast(hub.event(contracts.WSEventNotification, n))
}

// PublishState broadcasts the trip view and the alert list. Meant for Engine.OnStateChange.
func (hub *Hub) PublishState(view ports.TripView) {
	hub.Broadcast(hub.event(contracts.WSEventTripState, view))
	hub.Broadcast(hub.event(contracts.WSEventAlerts, view.Alerts))
}

// StateEvents builds the events describing view, for greeting new clients.
func (hub *Hub) StateEvents(view ports.TripView) []contracts.WSEvent {
	return []contracts.WSEvent{
		hub.event(contracts.WSEventTripState, view),
		hub.event(contracts.WSEventAlerts, view.Alerts),
	}
}

// Broadcast queues evt for every client without waiting on the network.
// Clients whose queue is full are dropped.
func (hub *Hub) Broadcast(evt contracts.WSEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		hub.logger.Error(context.Background(), "ws_encode_failed", "Failed to encode websocket event", err,
			map[string]any{"type": evt.Type})
		return
	}

	hub.mu.RLock()
	clients := make([]*client, 0, len(hub.clients))
	for _, c := range hub.clients {
		clients = append(clients, c)
	}
	hub.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			hub.logger.Warn(context.Background(), "ws_client_lagging", "Dropping websocket client with a full send queue", nil,
				map[string]any{"client_id": c.id, "type": evt.Type})
			hub.remove(c.id)
		}
	}
}

// Count returns the number of connected clients.
func (hub *Hub) Count() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients)
}

// Close sends a going-away frame to every client and forgets them.
func (hub *Hub) Close() {
	hub.mu.Lock()
	clients := hub.clients
	hub.clients = make(map[string]*client)
	hub.mu.Unlock()

	for _, c := range clients {
		c.close(websocket.CloseGoingAway, "shutdown")
	}
}

// Connect upgrades the request and serves the client until it disconnects.
func (hub *Hub) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()

	c := newClient(uuid.NewString(), conn)
	ctx := r.Context()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	hub.mu.RLock()
	greeting := hub.greeting
	hub.mu.RUnlock()
	if greeting != nil {
		for _, evt := range greeting() {
			if err := c.writeJSON(evt); err != nil {
				hub.logger.Warn(ctx, "ws_greeting_failed", "Failed to send initial state", err, nil)
				return
			}
		}
	}

	hub.add(c)
	defer hub.remove(c.id)
	go c.pump(func(err error) {
		hub.logger.Warn(ctx, "ws_write_failed", "Dropping websocket client", err, map[string]any{"client_id": c.id})
		hub.remove(c.id)
	})
	hub.logger.Info(ctx, "ws_connected", "Dashboard WebSocket connected", map[string]any{"client_id": c.id})

	stopPing := make(chan struct{})
	defer close(stopPing)
	go hub.pingLoop(c, stopPing)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				hub.logger.Warn(ctx, "ws_unexpected_close", "Dashboard connection closed unexpectedly", err,
					map[string]any{"client_id": c.id})
			} else {
				hub.logger.Info(ctx, "ws_connection_closed", "Dashboard connection closed",
					map[string]any{"client_id": c.id})
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		hub.dispatch(ctx, c, payload)
	}
}

func (hub *Hub) dispatch(ctx context.Context, c *client, payload []byte) {
	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		_ = c.write(websocket.TextMessage, []byte(`{"type":"error","error":"bad json"}`))
		return
	}

	hub.mu.RLock()
	fn, ok := hub.handlers[msg.Type]
	hub.mu.RUnlock()
	if !ok {
		_ = c.write(websocket.TextMessage, []byte(`{"type":"error","error":"unknown message type"}`))
		return
	}

	if err := fn(ctx, msg.Data); err != nil {
		hub.logger.Warn(ctx, "ws_message_failed", "Dashboard message rejected", err,
			map[string]any{"client_id": c.id, "type": msg.Type})
		_ = c.writeJSON(map[string]any{"type": "error", "error": err.Error()})
	}
}

func (hub *Hub) pingLoop(c *client, stop <-chan struct{}) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				// unblocks the reader
				_ = c.conn.Close()
				return
			}
		}
	}
}

func (hub *Hub) add(c *client) {
	hub.mu.Lock()
	hub.clients[c.id] = c
	hub.mu.Unlock()
}

func (hub *Hub) remove(id string) {
	hub.mu.Lock()
	c, ok := hub.clients[id]
	delete(hub.clients, id)
	hub.mu.Unlock()
	if ok {
		c.stop()
	}
}

func (hub *Hub) event(eventType string, data any) contracts.WSEvent {
	return contracts.WSEvent{Type: eventType, Data: data, At: hub.now().UTC()}
}
