package chat

import (
	"time"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/google/uuid"
)

// IDGenerator produces locally unique client ids for optimistic messages.
type IDGenerator func() string

// Clock supplies the current time.
type Clock func() time.Time

// NewOptimisticMessage builds the provisional record shown to the user
// before the server answers. The id generator and clock are injected, so
// given the same inputs the result is fully determined.
func NewOptimisticMessage(req models.CreateMessageRequest, newID IDGenerator, now Clock) models.Message {
	return models.Message{
		ClientID:    newID(),
		RoomID:      req.RoomID,
		FromID:      req.FromID,
		ToID:        req.ToID,
		Content:     req.Content,
		ContentType: req.ContentType,
		CreatedAt:   now(),
		Optimistic:  true,
	}
}

// defaultIDGenerator is the production id source.
func defaultIDGenerator() string {
	return uuid.New().String()
}

// defaultClock is the production time source.
func defaultClock() time.Time {
	return time.Now().UTC()
}
