package notify

import (
	"sync"
	"time"
)

// tokenBucket limits how many toasts reach the user in a burst.
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

func newTokenBucket(maxTokens, refillRate float64, now func() time.Time) *tokenBucket {
	return &tokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// maxRefillSeconds caps the elapsed time counted toward a refill so a long
// idle stretch only fills the bucket, never overflows it.
const maxRefillSeconds = 120.0

func (b *tokenBucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > maxRefillSeconds {
		elapsed = maxRefillSeconds
	}
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
	}
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastRefill = now
}

// tryConsume takes one token if available.
func (b *tokenBucket) tryConsume() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}
