package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/svp-backend/internal/access"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// ThreadAuthorizer reports whether viewer may follow a thread
type ThreadAuthorizer func(ctx context.Context, viewer access.Viewer, threadID uint) bool

// Client represents a WebSocket client connection of an authenticated user
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	viewer    access.Viewer
	authorize ThreadAuthorizer
	logger    *slog.Logger
}

// NewClient creates a new Client instance
func NewClient(hub *Hub, conn *websocket.Conn, viewer access.Viewer, authorize ThreadAuthorizer, logger *slog.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		viewer:    viewer,
		authorize: authorize,
		logger:    logger,
	}
}

// UserChannel is the private channel every client joins on connect
func UserChannel(userID uint) string {
	return fmt.Sprintf("user_%d", userID)
}

// ThreadChannel is the channel of one thread
func ThreadChannel(threadID uint) string {
	return fmt.Sprintf("conversa-%d", threadID)
}

// Serve registers the client, joins its user channel and runs both pumps
// until the connection closes
func (c *Client) Serve() {
	c.hub.Register(c)
	c.hub.Subscribe(c, UserChannel(c.viewer.UserID))
	go c.WritePump()
	c.ReadPump()
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				if c.logger != nil {
					c.logger.Error("websocket read error", slog.Any("error", err))
				}
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
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

// handleMessage processes incoming WebSocket messages
func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		if msg.ThreadID == 0 {
			c.sendError("thread_id is required")
			return
		}
		if c.authorize == nil || !c.authorize(context.Background(), c.viewer, msg.ThreadID) {
			c.sendError("not allowed to follow this thread")
			return
		}
		channel := ThreadChannel(msg.ThreadID)
		c.hub.Subscribe(c, channel)
		c.reply(Envelope{Type: MessageTypeSubscribed, Channel: channel})

	case MessageTypeUnsubscribe:
		if msg.ThreadID == 0 {
			c.sendError("thread_id is required")
			return
		}
		c.hub.Unsubscribe(c, ThreadChannel(msg.ThreadID))

	default:
		c.sendError("unknown message type")
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(errMsg string) {
	c.reply(Envelope{Type: MessageTypeError, Error: errMsg})
}

func (c *Client) reply(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, skip
	}
}
