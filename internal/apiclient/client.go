package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmehra-dev/pigeon/internal/models"
)

// Error is the server's rejection of a request, carrying the {message}
// payload the API returns. The message text is suitable for showing to
// the user directly.
type Error struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client issues durable message mutations against the HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the server at baseURL.
// Transport timeouts live here; callers only see success or failure.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateMessage persists a message durably and returns the server record
// carrying the assigned id and timestamp. A rejection with a decodable
// error payload comes back as *Error.
func (c *Client) CreateMessage(ctx context.Context, req models.CreateMessageRequest) (*models.Message, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create message request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &Error{StatusCode: resp.StatusCode}
		var payload models.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Message
		}
		return nil, apiErr
	}

	var msg models.Message
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return nil, fmt.Errorf("failed to parse message response: %w", err)
	}
	return &msg, nil
}
