package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBufferSize = 16
)

// Event is a realtime notification pushed to subscribed clients.
type Event struct {
	Action  string `json:"action"`
	Message any    `json:"message,omitempty"`
	Chat    any    `json:"chat,omitempty"`
}

// RoomKey builds the subscription key for a chat within a company.
func RoomKey(companyID, chatID string) string {
	return fmt.Sprintf("company-%s-chat-%s", companyID, chatID)
}

// HubStats represents hub statistics
type HubStats struct {
	Rooms      int    `json:"rooms"`
	Clients    int    `json:"clients"`
	EventsSent uint64 `json:"events_sent"`
}

// Hub manages websocket subscriptions per chat room and broadcasts
// events to every client in a room.
type Hub struct {
	rooms    map[string]map[*client]struct{}
	mu       sync.RWMutex
	logger   *slog.Logger
	upgrader websocket.Upgrader
	stopped  bool

	eventsSent uint64
}

type client struct {
	hub  *Hub
	room string
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a new notification hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*client]struct{}),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a websocket subscription. The chat
// room is taken from the company_id and chat_id query parameters.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	chatID := r.URL.Query().Get("chat_id")
	if companyID == "" || chatID == "" {
		http.Error(w, "company_id and chat_id are required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket connection",
			slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		room: RoomKey(companyID, chatID),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}

	if !h.register(c) {
		conn.Close()
		return
	}

	h.logger.Debug("Websocket client subscribed",
		slog.String("room", c.room))

	go c.writePump()
	go c.readPump()
}

// Broadcast sends an event to every client subscribed to the room.
func (h *Hub) Broadcast(room string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal event",
			slog.String("room", room),
			slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.rooms[room]
	for c := range clients {
		select {
		case c.send <- data:
			h.eventsSent++
		default:
			// Slow client, drop it
			delete(clients, c)
			close(c.send)
		}
	}
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := 0
	for _, room := range h.rooms {
		clients += len(room)
	}

	return HubStats{
		Rooms:      len(h.rooms),
		Clients:    clients,
		EventsSent: h.eventsSent,
	}
}

// Stop disconnects all clients and rejects new subscriptions.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return
	}
	h.stopped = true

	for room, clients := range h.rooms {
		for c := range clients {
			close(c.send)
		}
		delete(h.rooms, room)
	}

	h.logger.Info("Notification hub stopped")
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return false
	}

	clients, exists := h.rooms[c.room]
	if !exists {
		clients = make(map[*client]struct{})
		h.rooms[c.room] = clients
	}
	clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, exists := h.rooms[c.room]
	if !exists {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}

	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.room)
	}
}

// readPump discards inbound frames and detects disconnects.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
