package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/dmehra-dev/pigeon/internal/store"
	"github.com/dmehra-dev/pigeon/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

// MessageHandler contains HTTP handlers for the durable message endpoint.
// This is the mutation side of the send protocol: a message only gains a
// server identity here, and clients broadcast it on the realtime channel
// only after this endpoint has acknowledged it.
type MessageHandler struct {
	db      *store.DB
	metrics *telemetry.Metrics
}

// NewMessageHandler creates a new MessageHandler instance.
func NewMessageHandler(db *store.DB, metrics *telemetry.Metrics) *MessageHandler {
	return &MessageHandler{db: db, metrics: metrics}
}

// CreateMessage handles POST /api/messages
// Validates the request, persists the message durably, and returns the
// record carrying the server-assigned id and timestamp. Rejections use
// the {message} error payload that sending clients surface to the user.
func (h *MessageHandler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.RoomID == "" || req.FromID == "" || req.ToID == "" {
		writeError(w, http.StatusBadRequest, "roomId, fromId and toId are required")
		return
	}
	switch req.ContentType {
	case models.ContentTypeText, models.ContentTypeLink:
	case "":
		req.ContentType = models.ContentTypeText
	default:
		writeError(w, http.StatusBadRequest, "contentType must be text or link")
		return
	}

	isMember, err := h.db.IsParticipant(req.RoomID, req.FromID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to verify sender")
		return
	}
	if !isMember {
		writeError(w, http.StatusForbidden, "sender is not a participant of this conversation")
		return
	}

	msg, err := h.db.InsertMessage(req)
	if err != nil {
		log.Printf("[Message] Failed to persist message in room %s: %v", req.RoomID, err)
		writeError(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	h.metrics.MessagesPersisted.Inc()
	log.Printf("[Message] Stored message %s in room %s from %s", msg.ID, msg.RoomID, msg.FromID)
	writeJSON(w, http.StatusCreated, msg)
}

// ListMessages handles GET /api/rooms/{id}/messages
// Returns the conversation's history in server order.
func (h *MessageHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room ID is required")
		return
	}

	messages, err := h.db.ListMessages(roomID)
	if err != nil {
		log.Printf("[Message] Failed to list messages for room %s: %v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	writeJSON(w, http.StatusOK, models.ListMessagesResponse{Messages: messages})
}

// writeJSON is a helper function to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes the {message} error payload.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Message: message})
}
