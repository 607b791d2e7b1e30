package chat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTypingWindow is how long one typing signal covers. Edits inside
// the window are coalesced into the signal already sent.
const DefaultTypingWindow = 3 * time.Second

// TypingThrottle rate-limits best-effort typing signals per conversation.
// One signal passes per window; everything else inside the window is
// silently dropped, which is acceptable for an advisory indicator.
type TypingThrottle struct {
	window   time.Duration
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
}

// NewTypingThrottle creates a throttle with the given window per room.
func NewTypingThrottle(window time.Duration) *TypingThrottle {
	return &TypingThrottle{
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a typing signal for the conversation may be
// emitted now, consuming the window if so.
func (t *TypingThrottle) Allow(roomID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	lim, ok := t.limiters[roomID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(t.window), 1)
		t.limiters[roomID] = lim
	}
	return lim.Allow()
}
