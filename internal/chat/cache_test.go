package chat

import (
	"testing"

	"github.com/dmehra-dev/pigeon/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(clientID, content string) models.Message {
	return models.Message{
		ClientID:    clientID,
		RoomID:      "r1",
		Content:     content,
		ContentType: models.ContentTypeText,
		Optimistic:  true,
	}
}

func contents(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestCacheGetSetAppend(t *testing.T) {
	c := NewCache()

	assert.Empty(t, c.Get("r1"))

	c.Append("r1", msg("c1", "one"))
	c.Set("r1", func(msgs []models.Message) []models.Message {
		return append(msgs, msg("c2", "two"))
	})

	assert.Equal(t, []string{"one", "two"}, contents(c.Get("r1")))
	assert.Equal(t, 2, c.Len("r1"))
	assert.Empty(t, c.Get("r2"))
}

func TestCacheSetUpdaterGetsCopy(t *testing.T) {
	c := NewCache()
	c.Append("r1", msg("c1", "one"))

	before := c.Get("r1")
	c.Set("r1", func(msgs []models.Message) []models.Message {
		msgs[0].Content = "mutated"
		return msgs
	})

	// The sequence handed out earlier is unaffected
	assert.Equal(t, "one", before[0].Content)
	assert.Equal(t, "mutated", c.Get("r1")[0].Content)
}

func TestCacheReplaceByClientIDPreservesPosition(t *testing.T) {
	c := NewCache()
	c.Append("r1", msg("c1", "one"))
	c.Append("r1", msg("c2", "two"))
	c.Append("r1", msg("c3", "three"))

	durable := msg("c2", "two")
	durable.ID = "srv-2"
	durable.Optimistic = false

	require.True(t, c.ReplaceByClientID("r1", "c2", durable))

	got := c.Get("r1")
	assert.Equal(t, []string{"one", "two", "three"}, contents(got))
	assert.Equal(t, "srv-2", got[1].ID)
	assert.False(t, got[1].Optimistic)
	// Neighbors untouched
	assert.True(t, got[0].Optimistic)
	assert.True(t, got[2].Optimistic)
}

func TestCacheReplaceByClientIDMiss(t *testing.T) {
	c := NewCache()
	c.Append("r1", msg("c1", "one"))

	assert.False(t, c.ReplaceByClientID("r1", "nope", msg("nope", "x")))
	assert.Equal(t, []string{"one"}, contents(c.Get("r1")))
}

func TestCacheReplaceIsIdempotent(t *testing.T) {
	c := NewCache()
	c.Append("r1", msg("c1", "one"))

	durable := msg("c1", "one")
	durable.ID = "srv-1"
	durable.Optimistic = false

	require.True(t, c.ReplaceByClientID("r1", "c1", durable))
	once := c.Get("r1")

	require.True(t, c.ReplaceByClientID("r1", "c1", durable))
	twice := c.Get("r1")

	assert.Equal(t, once, twice)
	assert.Equal(t, 1, c.Len("r1"))
}

func TestCacheRemoveLeavesPriorStateExactly(t *testing.T) {
	c := NewCache()
	c.Append("r1", msg("c1", "one"))
	before := c.Get("r1")

	c.Append("r1", msg("temp", "pending"))
	require.True(t, c.RemoveByClientID("r1", "temp"))

	assert.Equal(t, before, c.Get("r1"))
}

func TestCacheRemoveKeepsSiblingDurableRecord(t *testing.T) {
	c := NewCache()

	// Two sends in flight; the first reconciles, then the second fails.
	// Undoing the second must not revert the first to its optimistic form.
	c.Append("r1", msg("temp-a", "a"))
	c.Append("r1", msg("temp-b", "b"))

	durable := msg("temp-a", "a")
	durable.ID = "srv-a"
	durable.Optimistic = false
	require.True(t, c.ReplaceByClientID("r1", "temp-a", durable))

	require.True(t, c.RemoveByClientID("r1", "temp-b"))

	got := c.Get("r1")
	require.Equal(t, []string{"a"}, contents(got))
	assert.Equal(t, "srv-a", got[0].ID)
	assert.False(t, got[0].Optimistic)
}

func TestCacheRemoveByClientIDPreservesOrder(t *testing.T) {
	c := NewCache()
	c.Append("r1", msg("c1", "one"))
	c.Append("r1", msg("c2", "two"))
	c.Append("r1", msg("c3", "three"))

	require.True(t, c.RemoveByClientID("r1", "c2"))
	assert.Equal(t, []string{"one", "three"}, contents(c.Get("r1")))

	assert.False(t, c.RemoveByClientID("r1", "c2"))
}

func TestCacheAppendIfAbsent(t *testing.T) {
	c := NewCache()

	remote := msg("remote-1", "hi")
	remote.ID = "srv-9"
	remote.Optimistic = false

	assert.True(t, c.AppendIfAbsent("r1", remote))
	// Same clientId: the fan-out echo of a message already cached
	assert.False(t, c.AppendIfAbsent("r1", remote))
	assert.Equal(t, 1, c.Len("r1"))

	// Same server id under a different clientId is still a duplicate
	dup := remote
	dup.ClientID = "other"
	assert.False(t, c.AppendIfAbsent("r1", dup))
	assert.Equal(t, 1, c.Len("r1"))
}
