package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/dmehra-dev/pigeon/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// RoomHandler contains HTTP handlers for conversation bootstrap: clients
// fetch a room and its participants on view entry to resolve the
// recipient before sending.
type RoomHandler struct {
	db *store.DB
}

// NewRoomHandler creates a new RoomHandler instance.
func NewRoomHandler(db *store.DB) *RoomHandler {
	return &RoomHandler{db: db}
}

// CreateRoom handles POST /api/rooms
// Opens a two-party conversation with the given participants.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Participants) < 2 {
		writeError(w, http.StatusBadRequest, "a conversation needs at least two participants")
		return
	}
	for _, p := range req.Participants {
		if p.User.ID == "" {
			writeError(w, http.StatusBadRequest, "every participant needs a user id")
			return
		}
	}

	room := &models.Room{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.db.CreateRoom(room, req.Participants); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, models.RoomInfoResponse{
		Room:         *room,
		Participants: req.Participants,
	})
}

// GetRoom handles GET /api/rooms/{id}
// Returns the conversation and its participants.
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "room ID is required")
		return
	}

	room, participants, err := h.db.GetRoom(roomID)
	if err != nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	writeJSON(w, http.StatusOK, models.RoomInfoResponse{
		Room:         *room,
		Participants: participants,
	})
}
