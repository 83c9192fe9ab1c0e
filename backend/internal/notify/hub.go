// Package notify pushes graph change events to connected browsers over
// websockets. The Hub satisfies graph.Notifier.
package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Event types
const (
	EventDrawNewNode = "draw_new_node"
	EventRemoveNode  = "remove_node"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

var connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "podgraph_notify_clients",
	Help: "Websocket clients currently subscribed to graph events",
})

// Event is what subscribers receive
type Event struct {
	Type      string    `json:"type"`
	URI       string    `json:"uri"`
	Predicate string    `json:"predicate"`
	Time      time.Time `json:"time"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Event
	done chan struct{}
}

// Hub fans events out to every connected client. A client that cannot keep
// up is disconnected rather than slowing the others down.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// DrawNewNode announces a node reachable via predicate
func (h *Hub) DrawNewNode(uri, predicate string) {
	h.Broadcast(Event{Type: EventDrawNewNode, URI: uri, Predicate: predicate})
}

// RemoveNode announces that the link to uri via predicate is gone
func (h *Hub) RemoveNode(uri, predicate string) {
	h.Broadcast(Event{Type: EventRemoveNode, URI: uri, Predicate: predicate})
}

// Broadcast queues ev for every client without blocking
func (h *Hub) Broadcast(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	var slow []*client
	h.mu.RLock()
	for _, c := range h.clients {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client", zap.String("client", c.id))
		h.remove(c)
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handler upgrades the request and streams events until the client leaves
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Error("Failed to upgrade the websocket", zap.Error(err))
			return
		}

		cl := &client{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan Event, sendBuffer),
			done: make(chan struct{}),
		}
		h.add(cl)
		go h.writeLoop(cl)

		h.logger.Info("Websocket client connected", zap.String("client", cl.id))

		// clients only listen; reading detects the disconnect
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		h.remove(cl)
		<-cl.done
		h.logger.Info("Websocket client disconnected", zap.String("client", cl.id))
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	connectedClients.Inc()
}

// remove is safe to call more than once per client
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()

	connectedClients.Dec()
	_ = c.conn.Close()
}

func (h *Hub) writeLoop(c *client) {
	defer close(c.done)
	for ev := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(ev); err != nil {
			h.logger.Debug("Failed to write websocket event",
				zap.String("client", c.id),
				zap.Error(err),
			)
			_ = c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}
