package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-research-agent-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Hub fans progress events out to every connected client. Connections are
// anonymous; there is no per-user routing. Redis relays events to clients
// connected to other instances.
type Hub struct {
	clients map[*Client]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"clients": h.clientCount()})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"clients": h.clientCount()})
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends an event to ALL connected clients, local and remote.
func (h *Hub) Broadcast(event string, data map[string]interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"type": event,
		"data": data,
	})
	if err != nil {
		h.logger.Warn("Hub", "Failed to marshal broadcast", map[string]interface{}{"event": event})
		return
	}

	h.broadcastLocal(payload)

	// Relay to other instances
	if h.rdb != nil {
		h.rdb.Publish(context.Background(), "cluster_events", payload)
	}
}

func (h *Hub) broadcastLocal(payload []byte) {
	// Full lock: slow consumers are evicted inline.
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
			// Slow consumer, drop the connection
			close(client.Send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "cluster_events")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for msg := range ch {
		if !json.Valid([]byte(msg.Payload)) {
			log.Printf("Redis msg parse error: invalid payload")
			continue
		}
		h.broadcastLocal([]byte(msg.Payload))
	}
}
