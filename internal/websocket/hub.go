package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// MessageType represents the type of a client-to-server WebSocket message
type MessageType string

const (
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeUnsubscribe MessageType = "unsubscribe"
	MessageTypeSubscribed  MessageType = "subscribed"
	MessageTypeError       MessageType = "error"
)

// ClientMessage is sent by clients to join or leave a thread channel
type ClientMessage struct {
	Type     MessageType `json:"type"`
	ThreadID uint        `json:"thread_id,omitempty"`
}

// Envelope is what subscribers of a channel receive
type Envelope struct {
	Type    MessageType `json:"type,omitempty"`
	Channel string      `json:"channel,omitempty"`
	Event   string      `json:"event,omitempty"`
	Data    any         `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// broadcastBuffer bounds the events waiting for the hub loop. Publish drops
// events when it is full.
const broadcastBuffer = 256

// Hub maintains the set of active clients and their channel subscriptions
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Channel subscriptions: channel -> set of clients
	subscriptions map[string]map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest
	broadcast   chan *broadcastMessage
	done        chan struct{}

	mu     sync.RWMutex
	logger *slog.Logger
}

type subscriptionRequest struct {
	client  *Client
	channel string
}

type broadcastMessage struct {
	channel string
	message []byte
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan *subscriptionRequest),
		unsubscribe:   make(chan *subscriptionRequest),
		broadcast:     make(chan *broadcastMessage, broadcastBuffer),
		done:          make(chan struct{}),
		logger:        logger,
	}
}

// Run starts the hub's main loop. When ctx is done every client is
// disconnected and later registrations are ignored.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client registered", slog.Uint64("user_id", uint64(client.viewer.UserID)))
			}

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unregistered", slog.Uint64("user_id", uint64(client.viewer.UserID)))
			}

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.clients[req.client]; ok {
				if h.subscriptions[req.channel] == nil {
					h.subscriptions[req.channel] = make(map[*Client]bool)
				}
				h.subscriptions[req.channel][req.client] = true
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client subscribed", slog.String("channel", req.channel))
			}

		case req := <-h.unsubscribe:
			h.mu.Lock()
			if subscribers, ok := h.subscriptions[req.channel]; ok {
				delete(subscribers, req.client)
				if len(subscribers) == 0 {
					delete(h.subscriptions, req.channel)
				}
			}
			h.mu.Unlock()
			if h.logger != nil {
				h.logger.Debug("client unsubscribed", slog.String("channel", req.channel))
			}

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.subscriptions[msg.channel] {
				select {
				case client.send <- msg.message:
				default:
					// Client buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// remove drops client and its subscriptions; callers hold mu
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	for channel, subscribers := range h.subscriptions {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.subscriptions, channel)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.remove(client)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribe subscribes a client to a channel
func (h *Hub) Subscribe(client *Client, channel string) {
	select {
	case h.subscribe <- &subscriptionRequest{client: client, channel: channel}:
	case <-h.done:
	}
}

// Unsubscribe unsubscribes a client from a channel
func (h *Hub) Unsubscribe(client *Client, channel string) {
	select {
	case h.unsubscribe <- &subscriptionRequest{client: client, channel: channel}:
	case <-h.done:
	}
}

// Publish queues event for the subscribers of channel. It never blocks: when
// the queue is full the event is dropped and logged.
func (h *Hub) Publish(channel, event string, payload any) {
	data, err := json.Marshal(Envelope{Channel: channel, Event: event, Data: payload})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to marshal event", slog.String("channel", channel), slog.Any("error", err))
		}
		return
	}

	select {
	case h.broadcast <- &broadcastMessage{channel: channel, message: data}:
	default:
		if h.logger != nil {
			h.logger.Warn("real-time queue full, event dropped",
				slog.String("channel", channel),
				slog.String("event", event))
		}
	}
}

// Subscribers returns the number of clients subscribed to channel
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[channel])
}
