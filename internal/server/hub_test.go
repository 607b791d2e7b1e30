package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/dmehra-dev/pigeon/internal/realtime"
	"github.com/dmehra-dev/pigeon/internal/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelay(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(telemetry.New(prometheus.NewRegistry()))
	go hub.Run()

	r := chi.NewRouter()
	r.Get("/ws/{id}", NewHandler(hub).ServeWS)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, srv
}

func dialRelay(t *testing.T, srv *httptest.Server, roomID, userID string) *realtime.Socket {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + roomID + "?user_id=" + userID
	socket, err := realtime.Dial(url)
	require.NoError(t, err)
	t.Cleanup(socket.Close)
	return socket
}

// collect funnels inbound payloads of one event type into a channel.
func collect(socket *realtime.Socket, eventType string) chan json.RawMessage {
	received := make(chan json.RawMessage, 16)
	socket.Subscribe(eventType, func(payload json.RawMessage) {
		received <- payload
	})
	return received
}

func waitForSessions(t *testing.T, hub *Hub, roomID string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.RoomSessionCount(roomID) == want
	}, 2*time.Second, 10*time.Millisecond, "sessions never registered")
}

func receive(t *testing.T, ch chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("no frame arrived")
		return nil
	}
}

func durableMessage(id, content string) models.Message {
	return models.Message{
		ID:          id,
		ClientID:    "c-" + id,
		RoomID:      "r1",
		FromID:      "u1",
		ToID:        "u2",
		Content:     content,
		ContentType: models.ContentTypeText,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestRelayBroadcastsDurableMessagesToRoomPeers(t *testing.T) {
	hub, srv := newRelay(t)

	sender := dialRelay(t, srv, "r1", "u1")
	receiver := dialRelay(t, srv, "r1", "u2")
	waitForSessions(t, hub, "r1", 2)

	senderEcho := collect(sender, models.EventMessage)
	received := collect(receiver, models.EventMessage)

	require.NoError(t, sender.Emit(models.EventMessage, durableMessage("srv-1", "hello")))

	var got models.Message
	require.NoError(t, json.Unmarshal(receive(t, received), &got))
	assert.Equal(t, "srv-1", got.ID)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "r1", got.RoomID)

	// The sender already holds the message locally; no echo comes back
	select {
	case <-senderEcho:
		t.Fatal("message was echoed to its sender")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRelayRefusesOptimisticMessages(t *testing.T) {
	hub, srv := newRelay(t)

	sender := dialRelay(t, srv, "r1", "u1")
	receiver := dialRelay(t, srv, "r1", "u2")
	waitForSessions(t, hub, "r1", 2)

	received := collect(receiver, models.EventMessage)

	optimistic := durableMessage("", "unconfirmed")
	optimistic.Optimistic = true
	require.NoError(t, sender.Emit(models.EventMessage, optimistic))
	require.NoError(t, sender.Emit(models.EventMessage, durableMessage("srv-2", "confirmed")))

	// Only the durable record arrives; the optimistic frame before it was
	// dropped by the hub.
	var got models.Message
	require.NoError(t, json.Unmarshal(receive(t, received), &got))
	assert.Equal(t, "srv-2", got.ID)

	select {
	case <-received:
		t.Fatal("a second frame arrived")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRelayBroadcastsTyping(t *testing.T) {
	hub, srv := newRelay(t)

	sender := dialRelay(t, srv, "r1", "u1")
	receiver := dialRelay(t, srv, "r1", "u2")
	waitForSessions(t, hub, "r1", 2)

	received := collect(receiver, models.EventTyping)

	require.NoError(t, sender.Emit(models.EventTyping, models.TypingPayload{RoomID: "r1"}))

	var got models.TypingPayload
	require.NoError(t, json.Unmarshal(receive(t, received), &got))
	assert.Equal(t, "r1", got.RoomID)
}

func TestRelayRoutesNotificationsByUser(t *testing.T) {
	hub, srv := newRelay(t)

	sender := dialRelay(t, srv, "r1", "u1")
	// The recipient is looking at a different conversation entirely
	elsewhere := dialRelay(t, srv, "r9", "u2")
	waitForSessions(t, hub, "r1", 1)
	waitForSessions(t, hub, "r9", 1)

	received := collect(elsewhere, models.EventNotification)

	notification := models.NotificationPayload{
		ToUserID: "u2",
		FromUser: models.User{ID: "u1", Name: "Asha"},
		Message:  "hello",
		RoomID:   "r1",
	}
	require.NoError(t, sender.Emit(models.EventNotification, notification))

	var got models.NotificationPayload
	require.NoError(t, json.Unmarshal(receive(t, received), &got))
	assert.Equal(t, "u2", got.ToUserID)
	assert.Equal(t, "Asha", got.FromUser.Name)
	assert.Equal(t, "r1", got.RoomID)
}
