// Package stream fans frame payloads out to WebSocket subscribers of named
// streams.
package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write; a subscriber that can't take a
	// message in that time is disconnected.
	writeWait = 2 * time.Second
	// sendBuffer is how many messages a subscriber may fall behind before
	// new ones are dropped for it.
	sendBuffer = 64
)

// ErrSubscriberBehind reports messages dropped for a subscriber whose send
// buffer was full.
var ErrSubscriberBehind = errors.New("subscriber send buffer full")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Viewers are served from other origins on the LAN.
	},
}

type client struct {
	conn   *websocket.Conn
	stream string
	send   chan []byte // closed by Hub.remove
}

// writePump is the connection's only writer. A failed write closes the
// connection, which ends the read loop and removes the client.
func (c *client) writePump() {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// Hub tracks WebSocket clients per stream name and publishes to them.
type Hub struct {
	mu      sync.RWMutex
	streams map[string]map[*client]struct{}
	logger  *slog.Logger
}

// NewHub creates an empty hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		streams: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
}

// HandleWebSocket upgrades the connection and subscribes it to the stream
// named by the {stream} path value.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("stream")
	if name == "" {
		http.Error(w, `{"error":"stream is required"}`, http.StatusBadRequest)
		return
	}
	h.Subscribe(w, r, name)
}

// Subscribe upgrades the connection and adds it to stream. The client is
// dropped when it disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, stream string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "stream", stream, "error", err)
		return
	}

	c := &client{conn: conn, stream: stream, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	subs, ok := h.streams[stream]
	if !ok {
		subs = make(map[*client]struct{})
		h.streams[stream] = subs
	}
	subs[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("subscriber joined", "stream", stream, "remote", r.RemoteAddr)

	go c.writePump()

	// Read loop: subscribers don't send anything, but reading is how
	// gorilla notices the close.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if subs, ok := h.streams[c.stream]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.streams, c.stream)
		}
	}
	close(c.send)
	h.mu.Unlock()
	c.conn.Close()
}

// Publish queues payload as one binary message for every subscriber of
// stream and returns without waiting for the writes. A stream without
// subscribers is not an error. Subscribers whose buffer is full miss the
// message; the result then wraps ErrSubscriberBehind.
func (h *Hub) Publish(stream string, payload []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	behind := 0
	for c := range h.streams[stream] {
		select {
		case c.send <- payload:
		default:
			behind++
		}
	}
	if behind > 0 {
		return fmt.Errorf("stream %s: %d subscribers: %w", stream, behind, ErrSubscriberBehind)
	}
	return nil
}

// ClientCount returns the number of subscribers of stream, or of all
// streams when stream is empty.
func (h *Hub) ClientCount(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if stream != "" {
		return len(h.streams[stream])
	}
	n := 0
	for _, subs := range h.streams {
		n += len(subs)
	}
	return n
}

// Streams returns the names of streams with at least one subscriber.
func (h *Hub) Streams() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.streams))
	for name := range h.streams {
		names = append(names, name)
	}
	return names
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*client
	for _, subs := range h.streams {
		for c := range subs {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	// WriteControl may run alongside writePump.
	for _, c := range all {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.conn.Close()
	}
}
