package models

import "time"

// ContentType classifies what a message body holds.
type ContentType string

const (
	// ContentTypeText is ordinary prose.
	ContentTypeText ContentType = "text"

	// ContentTypeLink marks a message whose entire body is a single URL,
	// so clients can render a preview card instead of plain text.
	ContentTypeLink ContentType = "link"
)

// Message represents a single direct message in a conversation.
// Before the server acknowledges it, a message exists only on the sender's
// client: ID is empty, Optimistic is true, and ClientID is the handle used
// to find the entry again once the durable copy arrives. A durable message
// never transitions back to optimistic.
type Message struct {
	// ID is the server-assigned identity; empty until the message is durable
	ID string `json:"id,omitempty"`

	// ClientID is generated on the sending client and stays stable across
	// the optimistic-to-durable transition
	ClientID string `json:"clientId,omitempty"`

	// RoomID is the conversation this message belongs to
	RoomID string `json:"roomId"`

	// FromID is the sender's user ID
	FromID string `json:"fromId"`

	// ToID is the recipient's user ID
	ToID string `json:"toId"`

	// Content is the message text
	Content string `json:"content"`

	// ContentType is "text" or "link"
	ContentType ContentType `json:"contentType"`

	// CreatedAt is the client time for optimistic entries and the
	// server-assigned time once durable
	CreatedAt time.Time `json:"createdAt"`

	// Optimistic is true while the message awaits server confirmation
	Optimistic bool `json:"optimistic"`
}

// User identifies a chat user. Name and Image ride along denormalized in
// notifications so receiving clients can render a toast without a lookup.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// Participant links a user to a conversation.
type Participant struct {
	User User `json:"user"`
}

// Room represents a two-party direct-message conversation.
type Room struct {
	// ID is the unique identifier of the conversation
	ID string `json:"id"`

	// CreatedAt is when the conversation was opened
	CreatedAt time.Time `json:"createdAt"`
}

// CreateMessageRequest is the request body for creating a durable message.
type CreateMessageRequest struct {
	Content     string      `json:"content"`
	ContentType ContentType `json:"contentType"`
	RoomID      string      `json:"roomId"`
	ToID        string      `json:"toId"`
	FromID      string      `json:"fromId"`
}

// CreateRoomRequest is the request body for opening a conversation.
type CreateRoomRequest struct {
	Participants []Participant `json:"participants"`
}

// RoomInfoResponse contains a conversation and its participants.
type RoomInfoResponse struct {
	Room         Room          `json:"room"`
	Participants []Participant `json:"participants"`
}

// ListMessagesResponse is the response for fetching a conversation's history.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}

// ErrorResponse is the error payload returned by the API. The message text
// is what sending clients surface to the user on failure.
type ErrorResponse struct {
	Message string `json:"message"`
}
