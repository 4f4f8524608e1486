// Package ratelimit paces outbound requests.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// KeyedLimiter enforces a minimum delay between consecutive operations
// sharing a key. Ingestion keys on the board name, so each job board sees
// at most one request per interval; submission pacing uses a single shared
// key for the whole run.
type KeyedLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	minDelay time.Duration
}

// New creates a limiter enforcing minDelay between consecutive operations
// on the same key. Different keys never block each other.
func New(minDelay time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until the key's minimum delay has elapsed since the previous
// call. Returns an error if the context is cancelled while waiting.
func (l *KeyedLimiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	last, ok := l.lastCall[key]
	now := time.Now()

	if !ok {
		// First operation on this key, no wait needed.
		l.lastCall[key] = now
		l.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= l.minDelay {
		l.lastCall[key] = now
		l.mu.Unlock()
		return nil
	}

	// Wait out the remainder.
	remaining := l.minDelay - elapsed
	l.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	l.mu.Lock()
	l.lastCall[key] = time.Now()
	l.mu.Unlock()

	return nil
}
