package chat

import (
	"sync"

	"github.com/dmehra-dev/pigeon/internal/models"
)

// Cache is the client-side per-conversation message store: the single
// source of truth for what the conversation view renders.
// Sequences are ordered; optimistic entries sit where they were inserted
// and reconciliation replaces them in place rather than appending.
type Cache struct {
	// rooms stores messages per conversation: roomID -> ordered sequence
	rooms map[string][]models.Message

	// index maps roomID -> clientID -> position, so reconciliation
	// replaces in place with a lookup instead of a linear scan
	index map[string]map[string]int

	mu sync.RWMutex
}

// NewCache creates an empty conversation cache.
func NewCache() *Cache {
	return &Cache{
		rooms: make(map[string][]models.Message),
		index: make(map[string]map[string]int),
	}
}

// Get returns a copy of the conversation's messages in order.
func (c *Cache) Get(roomID string) []models.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyMessages(c.rooms[roomID])
}

// Set applies updater to the conversation's current sequence and installs
// the result atomically. The updater receives a copy, so sequences handed
// out earlier are never mutated underneath their holders.
func (c *Cache) Set(roomID string, updater func([]models.Message) []models.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := updater(copyMessages(c.rooms[roomID]))
	c.install(roomID, next)
}

// Append adds msg at the tail of the conversation.
func (c *Cache) Append(roomID string, msg models.Message) {
	c.Set(roomID, func(msgs []models.Message) []models.Message {
		return append(msgs, msg)
	})
}

// AppendIfAbsent adds msg at the tail unless the conversation already holds
// an entry with the same clientId or the same server id. Inbound handlers
// use it so the fan-out echo of a message is not duplicated.
// Reports whether the message was added.
func (c *Cache) AppendIfAbsent(roomID string, msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.ClientID != "" {
		if _, exists := c.index[roomID][msg.ClientID]; exists {
			return false
		}
	}
	if msg.ID != "" {
		for _, existing := range c.rooms[roomID] {
			if existing.ID == msg.ID {
				return false
			}
		}
	}

	c.install(roomID, append(copyMessages(c.rooms[roomID]), msg))
	return true
}

// ReplaceByClientID swaps the entry matching clientID for the durable
// record, preserving its position. Reports false when no entry matched,
// in which case the caller appends instead.
func (c *Cache) ReplaceByClientID(roomID, clientID string, durable models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.index[roomID][clientID]
	if !ok {
		return false
	}

	msgs := copyMessages(c.rooms[roomID])
	msgs[pos] = durable
	c.install(roomID, msgs)
	return true
}

// RemoveByClientID deletes the entry matching clientID, preserving the
// relative order of everything else. Reports whether an entry was removed.
// This is the rollback primitive: undoing a failed send touches only that
// send's own entry, so sibling sends that already reconciled keep their
// durable records whatever order the settles land in.
func (c *Cache) RemoveByClientID(roomID, clientID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.index[roomID][clientID]
	if !ok {
		return false
	}

	current := c.rooms[roomID]
	msgs := make([]models.Message, 0, len(current)-1)
	msgs = append(msgs, current[:pos]...)
	msgs = append(msgs, current[pos+1:]...)
	c.install(roomID, msgs)
	return true
}

// Len returns the number of messages cached for a conversation.
func (c *Cache) Len(roomID string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms[roomID])
}

// install stores the sequence and rebuilds the clientId index.
// Callers must hold the write lock.
func (c *Cache) install(roomID string, msgs []models.Message) {
	c.rooms[roomID] = msgs

	idx := make(map[string]int, len(msgs))
	for i, msg := range msgs {
		if msg.ClientID != "" {
			idx[msg.ClientID] = i
		}
	}
	c.index[roomID] = idx
}

func copyMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}
