package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMessageSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/messages", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req models.CreateMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello", req.Content)
		assert.Equal(t, models.ContentTypeText, req.ContentType)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Message{
			ID:          "srv-1",
			RoomID:      req.RoomID,
			FromID:      req.FromID,
			ToID:        req.ToID,
			Content:     req.Content,
			ContentType: req.ContentType,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	msg, err := client.CreateMessage(context.Background(), models.CreateMessageRequest{
		Content:     "hello",
		ContentType: models.ContentTypeText,
		RoomID:      "r1",
		ToID:        "u2",
		FromID:      "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-1", msg.ID)
	assert.Equal(t, "r1", msg.RoomID)
}

func TestCreateMessageServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.ErrorResponse{Message: "too long"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	msg, err := client.CreateMessage(context.Background(), models.CreateMessageRequest{Content: "x"})
	require.Nil(t, msg)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "too long", apiErr.Message)
}

func TestCreateMessageTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(srv.URL)
	msg, err := client.CreateMessage(context.Background(), models.CreateMessageRequest{Content: "x"})
	require.Nil(t, msg)
	require.Error(t, err)

	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr), "transport failures are not api errors")
}
