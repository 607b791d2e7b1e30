package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/dmehra-dev/pigeon/internal/apiclient"
	"github.com/dmehra-dev/pigeon/internal/classify"
	"github.com/dmehra-dev/pigeon/internal/models"
)

// Validation errors returned by Send before any cache or network activity.
var (
	// ErrEmptyMessage is returned when the composed text is empty.
	ErrEmptyMessage = errors.New("message content is empty")

	// ErrNoRecipient is returned when no participant other than the
	// current user exists in the conversation.
	ErrNoRecipient = errors.New("no recipient could be resolved")

	// ErrConversationClosed is returned when sending into a conversation
	// the user has already left.
	ErrConversationClosed = errors.New("conversation is closed")
)

// genericSendError is the toast text used when the server gives no reason.
const genericSendError = "Failed to send message"

// MutationClient issues the durable create request for a message.
type MutationClient interface {
	CreateMessage(ctx context.Context, req models.CreateMessageRequest) (*models.Message, error)
}

// Channel is the realtime connection the controller emits on and receives
// from. It is injected rather than reached through a global so tests can
// substitute a fake.
type Channel interface {
	// Emit sends an event to the relay
	Emit(eventType string, payload any) error

	// Subscribe registers a handler for inbound events of the given type
	// and returns a function that removes the registration
	Subscribe(eventType string, handler func(payload json.RawMessage)) (unsubscribe func())
}

// Notifier surfaces send failures to the user; the UI layer typically
// renders them as a toast.
type Notifier interface {
	Error(message string)
}

// NotifierFunc adapts a plain function to the Notifier interface.
type NotifierFunc func(message string)

// Error calls the wrapped function.
func (f NotifierFunc) Error(message string) { f(message) }

// pendingSend is the ephemeral context held for one in-flight mutation:
// the client id the optimistic insert can be found under, for both the
// replace-in-place on success and the scoped undo on failure. Discarded
// when the send settles.
type pendingSend struct {
	tempID string
}

// Controller owns the send/receive protocol for one open conversation.
//
// A send moves through optimistic insert, durable create, and then either
// replace-in-place reconciliation or rollback. Sends are
// independent: each carries its own pending context keyed by client id,
// so several may be in flight and settle in any order. Typing signals and
// delivery notifications ride the same channel best-effort and never
// affect the durability path.
type Controller struct {
	roomID       string
	self         models.User
	participants []models.Participant

	cache     *Cache
	mutations MutationClient
	channel   Channel
	notifier  Notifier
	typing    *TypingThrottle

	newID IDGenerator
	now   Clock

	mu     sync.Mutex
	closed bool

	inFlight sync.WaitGroup
}

// NewController creates the protocol controller for one conversation.
// The participant set is fixed for the controller's lifetime; self is the
// current session's user.
func NewController(roomID string, self models.User, participants []models.Participant,
	cache *Cache, mutations MutationClient, channel Channel, notifier Notifier) *Controller {
	return &Controller{
		roomID:       roomID,
		self:         self,
		participants: participants,
		cache:        cache,
		mutations:    mutations,
		channel:      channel,
		notifier:     notifier,
		typing:       NewTypingThrottle(DefaultTypingWindow),
		newID:        defaultIDGenerator,
		now:          defaultClock,
	}
}

// Recipient resolves the other party of the two-person conversation by
// excluding the current user from the participant set.
func (c *Controller) Recipient() (models.User, error) {
	for _, p := range c.participants {
		if p.User.ID != c.self.ID {
			return p.User, nil
		}
	}
	return models.User{}, ErrNoRecipient
}

// OnEdit reacts to the composer's text changing. Every non-empty edit
// emits a throttled typing signal. The signal is advisory: emission
// failures are logged and dropped, never retried or surfaced.
func (c *Controller) OnEdit(text string) {
	if text == "" {
		return
	}
	if !c.typing.Allow(c.roomID) {
		return
	}
	if err := c.channel.Emit(models.EventTyping, models.TypingPayload{RoomID: c.roomID}); err != nil {
		log.Printf("[Chat] Typing signal dropped for room %s: %v", c.roomID, err)
	}
}

// Send runs one full send lifecycle for the composed text.
//
// Validation failures (empty text, unresolvable recipient) return an error
// before the cache or the network are touched. Otherwise the optimistic
// entry is visible in the cache by the time Send returns, and the durable
// request settles in the background: on success the entry is replaced in
// place by the server record and the message fans out on the channel; on
// failure the insert is rolled back and the user is notified. There is no
// automatic retry.
func (c *Controller) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	recipient, err := c.Recipient()
	if err != nil {
		return err
	}
	if c.isClosed() {
		return ErrConversationClosed
	}

	req := models.CreateMessageRequest{
		Content:     text,
		ContentType: classify.Classify(text),
		RoomID:      c.roomID,
		ToID:        recipient.ID,
		FromID:      c.self.ID,
	}

	optimistic := NewOptimisticMessage(req, c.newID, c.now)
	pending := pendingSend{tempID: optimistic.ClientID}
	c.cache.Append(c.roomID, optimistic)

	c.inFlight.Add(1)
	go func() {
		defer c.inFlight.Done()
		c.settle(ctx, req, recipient, pending)
	}()
	return nil
}

// settle waits for the durable mutation and applies its outcome.
func (c *Controller) settle(ctx context.Context, req models.CreateMessageRequest,
	recipient models.User, pending pendingSend) {
	durable, err := c.mutations.CreateMessage(ctx, req)
	if err != nil {
		c.rollback(pending, err)
		return
	}
	c.reconcile(*durable, recipient, pending)
}

// reconcile replaces the optimistic entry with the server's record at the
// same position, then fans the durable message out on the channel along
// with a notification for the recipient.
func (c *Controller) reconcile(durable models.Message, recipient models.User, pending pendingSend) {
	if c.isClosed() {
		log.Printf("[Chat] Dropping stale reconciliation for room %s (conversation closed)", c.roomID)
		return
	}

	// The client id survives the optimistic-to-durable transition; it is
	// what keyed the entry and what dedupes the fan-out echo.
	durable.ClientID = pending.tempID
	durable.Optimistic = false

	if !c.cache.ReplaceByClientID(c.roomID, pending.tempID, durable) {
		// Reconciliation miss: the optimistic entry vanished (concurrent
		// cache reset). Non-fatal, keep the durable record.
		log.Printf("[Chat] No optimistic entry %s in room %s, appending durable record", pending.tempID, c.roomID)
		c.cache.Append(c.roomID, durable)
	}

	if err := c.channel.Emit(models.EventMessage, durable); err != nil {
		log.Printf("[Chat] Message fan-out failed for %s: %v", durable.ID, err)
	}

	notification := models.NotificationPayload{
		ToUserID: recipient.ID,
		FromUser: c.self,
		Message:  durable.Content,
		RoomID:   durable.RoomID,
	}
	if err := c.channel.Emit(models.EventNotification, notification); err != nil {
		log.Printf("[Chat] Notification dropped for %s: %v", recipient.ID, err)
	}
}

// rollback undoes exactly this send's optimistic insert and surfaces the
// failure. The undo is scoped by client id rather than restoring a whole
// prior snapshot: a sibling send may have reconciled meanwhile, and its
// durable record must never revert to the optimistic state a snapshot
// still holds.
func (c *Controller) rollback(pending pendingSend, cause error) {
	log.Printf("[Chat] Send failed in room %s: %v", c.roomID, cause)
	if !c.isClosed() {
		c.cache.RemoveByClientID(c.roomID, pending.tempID)
	}
	c.notifier.Error(sendErrorMessage(cause))
}

// Bind subscribes the conversation to inbound message events: a remote
// message for this room is appended unless an entry with its client id is
// already cached (the echo of our own send). Returns the unsubscribe
// function; callers invoke it on view exit.
func (c *Controller) Bind() (unsubscribe func()) {
	return c.channel.Subscribe(models.EventMessage, func(payload json.RawMessage) {
		var msg models.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("[Chat] Dropping malformed inbound message: %v", err)
			return
		}
		if msg.RoomID != c.roomID || c.isClosed() {
			return
		}
		c.cache.AppendIfAbsent(c.roomID, msg)
	})
}

// Close marks the conversation inactive, as when the user navigates away.
// In-flight sends still settle but no longer write into the cache.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Wait blocks until every in-flight send has settled.
func (c *Controller) Wait() {
	c.inFlight.Wait()
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// sendErrorMessage maps a mutation failure to the text shown to the user,
// preferring the server-provided reason when there is one.
func sendErrorMessage(err error) string {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericSendError
}
