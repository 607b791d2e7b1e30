package server

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/dmehra-dev/pigeon/internal/telemetry"
)

// Hub maintains the set of connected sessions and routes realtime events
// between them. Message and typing events fan out to the other members of
// their room; notification events route to every open session of the
// addressed user, wherever it is connected.
type Hub struct {
	// rooms maps roomID to the sessions currently viewing that room
	rooms map[string]map[*Client]bool

	// users maps userID to that user's open sessions, for notifications
	users map[string]map[*Client]bool

	// register requests from clients
	register chan *Client

	// unregister requests from clients
	unregister chan *Client

	// inbound carries frames read off client connections
	inbound chan *inboundFrame

	mu sync.RWMutex

	metrics *telemetry.Metrics
}

// inboundFrame is one frame received from a session, with the envelope
// already decoded so the hub can route by type.
type inboundFrame struct {
	sender *Client
	raw    []byte
	event  models.Event
}

// NewHub creates a new Hub instance.
func NewHub(metrics *telemetry.Metrics) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		users:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *inboundFrame),
		metrics:    metrics,
	}
}

// Run starts the hub's main event loop.
// This should be called in a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case frame := <-h.inbound:
			h.route(frame)
		}
	}
}

// registerClient adds a session to its room and to its user's session set.
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.RoomID] == nil {
		h.rooms[client.RoomID] = make(map[*Client]bool)
	}
	h.rooms[client.RoomID][client] = true

	if client.UserID != "" {
		if h.users[client.UserID] == nil {
			h.users[client.UserID] = make(map[*Client]bool)
		}
		h.users[client.UserID][client] = true
	}

	h.metrics.SessionsOpen.Inc()
	log.Printf("[Hub] User %s joined room %s (room sessions: %d)",
		client.UserID, client.RoomID, len(h.rooms[client.RoomID]))
}

// unregisterClient removes a session from both indexes.
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropClient(client)
}

// dropClient removes the session and closes its send channel.
// Callers must hold the write lock.
func (h *Hub) dropClient(client *Client) {
	clients, ok := h.rooms[client.RoomID]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.RoomID)
	}

	if sessions, ok := h.users[client.UserID]; ok {
		delete(sessions, client)
		if len(sessions) == 0 {
			delete(h.users, client.UserID)
		}
	}

	h.metrics.SessionsOpen.Dec()
	log.Printf("[Hub] User %s left room %s", client.UserID, client.RoomID)
}

// route dispatches one inbound frame according to its event type.
func (h *Hub) route(frame *inboundFrame) {
	switch frame.event.Type {
	case models.EventMessage:
		var msg models.Message
		if err := json.Unmarshal(frame.event.Payload, &msg); err != nil {
			h.drop("malformed", "message payload", err)
			return
		}
		// Unconfirmed content never reaches a peer: only records that
		// carry a server identity are relayed.
		if msg.Optimistic || msg.ID == "" {
			h.drop("optimistic", "message without durable identity", nil)
			return
		}
		h.broadcastToRoom(msg.RoomID, frame.raw, frame.sender)

	case models.EventTyping:
		var typing models.TypingPayload
		if err := json.Unmarshal(frame.event.Payload, &typing); err != nil {
			h.drop("malformed", "typing payload", err)
			return
		}
		h.broadcastToRoom(typing.RoomID, frame.raw, frame.sender)

	case models.EventNotification:
		var notification models.NotificationPayload
		if err := json.Unmarshal(frame.event.Payload, &notification); err != nil {
			h.drop("malformed", "notification payload", err)
			return
		}
		h.sendToUser(notification.ToUserID, frame.raw)

	default:
		h.drop("unknown_type", frame.event.Type, nil)
		return
	}

	h.metrics.EventsRelayed.WithLabelValues(frame.event.Type).Inc()
}

func (h *Hub) drop(reason, detail string, err error) {
	h.metrics.EventsDropped.WithLabelValues(reason).Inc()
	if err != nil {
		log.Printf("[Hub] Dropping frame (%s: %s): %v", reason, detail, err)
	} else {
		log.Printf("[Hub] Dropping frame (%s: %s)", reason, detail)
	}
}

// broadcastToRoom sends a frame to every session in the room except the
// sender, who already holds the content locally.
func (h *Hub) broadcastToRoom(roomID string, frame []byte, sender *Client) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if client == sender {
			continue
		}
		h.deliver(client, frame)
	}
}

// sendToUser sends a frame to every open session of the addressed user.
func (h *Hub) sendToUser(userID string, frame []byte) {
	h.mu.RLock()
	sessions := make([]*Client, 0, len(h.users[userID]))
	for client := range h.users[userID] {
		sessions = append(sessions, client)
	}
	h.mu.RUnlock()

	for _, client := range sessions {
		h.deliver(client, frame)
	}
}

// deliver queues a frame on the session, evicting it when its buffer is
// full (a slow consumer would otherwise stall the hub).
func (h *Hub) deliver(client *Client, frame []byte) {
	select {
	case client.send <- frame:
	default:
		h.mu.Lock()
		h.dropClient(client)
		h.mu.Unlock()
	}
}

// RoomSessionCount returns the number of connected sessions in a room.
func (h *Hub) RoomSessionCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
