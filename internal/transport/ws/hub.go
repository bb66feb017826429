package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

// Hub fans cycle results out to websocket peers.
// New peers receive the latest result of every target first.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	latest  map[string][]byte
	order   []string

	logger *slog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// envelope - one message on the wire.
type envelope struct {
	Type   string             `json:"type"`
	Result domain.CycleResult `json:"result"`
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		latest:  make(map[string][]byte),
		logger:  logger,
	}
}

// Publish broadcasts res; slow peers drop messages instead of blocking the cycle.
func (h *Hub) Publish(res domain.CycleResult) {
	msg, err := json.Marshal(envelope{Type: "cycle", Result: res})
	if err != nil {
		h.logger.Error("ws.marshal failed", slog.String("error", err.Error()))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.latest[res.Target]; !ok {
		h.order = append(h.order, res.Target)
	}
	h.latest[res.Target] = msg
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("ws.peer slow, message dropped", slog.String("remote", c.conn.RemoteAddr().String()))
		}
	}
}

// Clients returns the number of connected peers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the peer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws.upgrade failed", slog.String("error", err.Error()))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	for _, target := range h.order {
		select {
		case c.send <- h.latest[target]:
		default:
		}
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("ws.client connected", slog.String("remote", conn.RemoteAddr().String()))
	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only drains control frames; peers are read-only subscribers.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		h.logger.Debug("ws.client disconnected")
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
