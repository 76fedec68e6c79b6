package server

import (
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/sunrotstudios/velvet-metal/internal/shared"
	"github.com/sunrotstudios/velvet-metal/internal/tasks"
)

// EventHub broadcasts reconciliation outcomes to websocket clients.
//
// Implements tasks.EventPublisher: background reconciliation failures land
// here instead of vanishing into a log nobody watches. Slow clients are
// dropped rather than allowed to stall the broadcast loop.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan tasks.SyncEvent
}

// NewEventHub creates an EventHub.
func NewEventHub(logger *log.Logger) *EventHub {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// local tool, same-origin enforcement is not useful here
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]chan tasks.SyncEvent),
	}
}

func (h *EventHub) Routes() []string {
	return []string{"/events"}
}

// ServeHTTP upgrades the connection and streams events until the client leaves.
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	events := make(chan tasks.SyncEvent, 16)
	h.mu.Lock()
	h.clients[conn] = events
	h.mu.Unlock()

	go h.writeLoop(conn, events)
	go h.readLoop(conn)
}

// Publish implements tasks.EventPublisher. Never blocks; events for clients
// with a full buffer are dropped.
func (h *EventHub) Publish(event tasks.SyncEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, events := range h.clients {
		select {
		case events <- event:
		default:
			h.logger.Debug("dropping event for slow client", "remote", conn.RemoteAddr())
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *EventHub) writeLoop(conn *websocket.Conn, events <-chan tasks.SyncEvent) {
	defer h.drop(conn)

	for event := range events {
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}

// readLoop discards inbound messages and notices disconnects.
func (h *EventHub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *EventHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	events, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(events)
	}
	h.mu.Unlock()

	if ok {
		conn.Close()
	}
}
