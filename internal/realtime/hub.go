package realtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/faceoff-app/backend/internal/entity"
	"github.com/prometheus/client_golang/prometheus"
)

// Hub fans poll view updates out to every connected subscriber. Delivery is
// best effort: a client that connects after a publish never sees it, and a
// client whose send buffer is full is dropped.
type Hub struct {
	log         *slog.Logger
	clients     map[*Client]bool
	broadcast   chan []byte
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	subscribers prometheus.Gauge
}

type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

func NewHub(log *slog.Logger, subscribers prometheus.Gauge) *Hub {
	return &Hub{
		log:         log,
		clients:     make(map[*Client]bool),
		broadcast:   make(chan []byte),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		subscribers: subscribers,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, 16),
	}
}

// Register and Unregister become no-ops once the hub has shut down, so a
// client disconnecting mid-shutdown never blocks on a channel nobody reads.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish delivers the view to all subscribers connected at this moment.
// Publishing to zero subscribers, or after shutdown, is a no-op.
func (h *Hub) Publish(view entity.PollView) {
	data, err := json.Marshal(view)
	if err != nil {
		h.log.Error("failed to marshal poll view", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.subscribers.Inc()

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.subscribers.Dec()
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					// slow consumer, drop it
					delete(h.clients, client)
					close(client.Send)
					h.subscribers.Dec()
				}
			}
		}
	}
}

// WritePump drains the send channel into the websocket connection.
func (c *Client) WritePump(ctx context.Context) {
	defer c.Conn.Close(websocket.StatusNormalClosure, "")

	for message := range c.Send {
		if err := c.Conn.Write(ctx, websocket.MessageText, message); err != nil {
			return
		}
	}
}

// ReadPump blocks until the peer disconnects. Inbound frames are discarded;
// the stream is one-way.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.Conn.Read(ctx); err != nil {
			return
		}
	}
}
