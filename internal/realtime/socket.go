package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dmehra-dev/pigeon/internal/chat"
	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/gorilla/websocket"
)

// Socket is the production implementation of the controller's channel.
var _ chat.Channel = (*Socket)(nil)

const (
	// Time allowed to write a frame to the relay
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the relay
	pongWait = 60 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the relay
	maxMessageSize = 64 * 1024
)

// ErrSocketClosed is returned by Emit after the connection has gone away.
var ErrSocketClosed = errors.New("realtime socket is closed")

// Socket is a websocket-backed realtime channel. Every frame travels in
// the {type, payload} envelope; handlers subscribe per event type. Emit
// queues frames for a background writer, so callers never block on
// network I/O.
type Socket struct {
	conn *websocket.Conn
	send chan []byte

	handlers  map[string][]*subscription
	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	eventType string
	handler   func(payload json.RawMessage)
}

// Dial connects to the relay, e.g. ws://host/ws/{roomID}?user_id={id},
// and starts the read/write pumps. Callers must Close the socket when the
// conversation view exits.
func Dial(url string) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime dial failed: %w", err)
	}

	s := &Socket{
		conn:     conn,
		send:     make(chan []byte, 256),
		handlers: make(map[string][]*subscription),
		done:     make(chan struct{}),
	}

	go s.readPump()
	go s.writePump()
	return s, nil
}

// Emit sends an event to the relay. The frame is queued; delivery is not
// acknowledged at this layer.
func (s *Socket) Emit(eventType string, payload any) error {
	event, err := models.NewEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	frame, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return ErrSocketClosed
	}
}

// Subscribe registers a handler for inbound events of the given type and
// returns a function removing the registration.
func (s *Socket) Subscribe(eventType string, handler func(payload json.RawMessage)) (unsubscribe func()) {
	sub := &subscription{eventType: eventType, handler: handler}

	s.mu.Lock()
	s.handlers[eventType] = append(s.handlers[eventType], sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.handlers[eventType]
		for i, candidate := range subs {
			if candidate == sub {
				s.handlers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Close tears the connection down. Pending Emit calls fail with
// ErrSocketClosed.
func (s *Socket) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// readPump reads frames from the relay and dispatches them to handlers.
// Runs in its own goroutine for the life of the connection.
func (s *Socket) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[Realtime] Read error: %v", err)
			}
			return
		}

		var event models.Event
		if err := json.Unmarshal(frame, &event); err != nil {
			log.Printf("[Realtime] Dropping malformed frame: %v", err)
			continue
		}
		s.dispatch(event)
	}
}

// dispatch hands the event to every handler registered for its type.
func (s *Socket) dispatch(event models.Event) {
	s.mu.Lock()
	subs := make([]*subscription, len(s.handlers[event.Type]))
	copy(subs, s.handlers[event.Type])
	s.mu.Unlock()

	for _, sub := range subs {
		sub.handler(event.Payload)
	}
}

// writePump moves queued frames onto the wire and keeps the connection
// alive with pings. Runs in its own goroutine.
func (s *Socket) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}
