package realtime

import (
	"context"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/peluqueria/salond/internal/events"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const broadcastBuffer = 256

// Hub fans events out to every connected websocket client. The client set is
// owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int64(len(h.clients)))
			zap.L().Info("websocket client connected",
				zap.String("namespace", "realtime"),
				zap.String("remote", c.remote),
				zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
				zap.L().Info("websocket client disconnected",
					zap.String("namespace", "realtime"),
					zap.String("remote", c.remote),
					zap.Int("clients", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					h.drop(c)
					zap.L().Warn("websocket client dropped, send buffer full",
						zap.String("namespace", "realtime"),
						zap.String("remote", c.remote))
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.count.Store(int64(len(h.clients)))
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Broadcast queues ev for every client connected at delivery time.
func (h *Hub) Broadcast(ev events.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		zap.L().Error("encode broadcast", zap.String("namespace", "realtime"), zap.String("event", ev.Name), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
