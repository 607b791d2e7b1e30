package server

import (
	"encoding/json"
	"log"
	"time"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client represents a single connected realtime session.
type Client struct {
	hub *Hub

	// WebSocket connection
	conn *websocket.Conn

	// Buffered channel of outbound frames
	send chan []byte

	// Room this session is viewing
	RoomID string

	// User this session belongs to
	UserID string
}

// NewClient creates a new Client instance.
func NewClient(hub *Hub, conn *websocket.Conn, roomID, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		RoomID: roomID,
		UserID: userID,
	}
}

// ReadPump pumps frames from the WebSocket connection to the hub.
// This runs in its own goroutine per session.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Hub] Read error from %s: %v", c.UserID, err)
			}
			break
		}

		var event models.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			log.Printf("[Hub] Malformed frame from %s: %v", c.UserID, err)
			continue
		}

		c.hub.inbound <- &inboundFrame{sender: c, raw: raw, event: event}
	}
}

// WritePump pumps frames from the hub to the WebSocket connection.
// This runs in its own goroutine per session.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Each frame is its own WebSocket message; concatenating
			// would break JSON parsing on the receiving side
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
