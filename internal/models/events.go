package models

import "encoding/json"

// Event is the envelope every realtime frame travels in.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Realtime event types. Message events carry a durable Message, typing
// events a TypingPayload, notification events a NotificationPayload.
const (
	EventMessage      = "message"
	EventTyping       = "typing"
	EventNotification = "notification"
)

// TypingPayload signals that someone is composing in a conversation.
// Typing events are best-effort: unordered, unacknowledged, droppable.
type TypingPayload struct {
	RoomID string `json:"roomId"`
}

// NotificationPayload alerts a recipient about a new message outside the
// open conversation view. Sender identity is denormalized so the receiving
// client can show a toast without fetching the sender's profile.
type NotificationPayload struct {
	ToUserID string `json:"toUserId"`
	FromUser User   `json:"fromUser"`
	Message  string `json:"message"`
	RoomID   string `json:"roomId"`
}

// NewEvent wraps a payload in the realtime envelope.
func NewEvent(eventType string, payload any) (*Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Type: eventType, Payload: raw}, nil
}
