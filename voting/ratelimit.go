// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = time.Minute

	limiterShards = 32
)

// RateLimiter throttles vote attempts per fingerprint over a trailing window.
type RateLimiter interface {
	// Allow records an attempt for key and reports whether it is within the
	// limit. Denied attempts are not recorded.
	Allow(ctx context.Context, key string) (bool, error)
	// Reset forgets every recorded attempt for key.
	Reset(ctx context.Context, key string) error
}

// MemoryLimiter is a process-local RateLimiter. State is lost on restart and
// is not shared between processes.
type MemoryLimiter struct {
	clock       clockwork.Clock
	maxAttempts int
	window      time.Duration
	shards      [limiterShards]limiterShard
}

type limiterShard struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewMemoryLimiter creates a limiter allowing maxAttempts per window.
// Non-positive values fall back to the defaults.
func NewMemoryLimiter(clock clockwork.Clock, maxAttempts int, window time.Duration) *MemoryLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &MemoryLimiter{
		clock:       clock,
		maxAttempts: maxAttempts,
		window:      window,
	}
	for i := range l.shards {
		l.shards[i].attempts = make(map[string][]time.Time)
	}
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.clock.Now()
	s := l.shard(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	recent := l.prune(s.attempts[key], now)
	if len(recent) >= l.maxAttempts {
		s.attempts[key] = recent
		return false, nil
	}

	s.attempts[key] = append(recent, now)
	return true, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	s := l.shard(key)

	s.mu.Lock()
	delete(s.attempts, key)
	s.mu.Unlock()

	return nil
}

// Sweep drops keys whose attempts have all left the window.
func (l *MemoryLimiter) Sweep() {
	now := l.clock.Now()
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		for key, ts := range s.attempts {
			if recent := l.prune(ts, now); len(recent) == 0 {
				delete(s.attempts, key)
			} else {
				s.attempts[key] = recent
			}
		}
		s.mu.Unlock()
	}
}

// Run sweeps every interval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := l.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.Sweep()
		}
	}
}

// Len reports how many fingerprints are tracked.
func (l *MemoryLimiter) Len() int {
	n := 0
	for i := range l.shards {
		s := &l.shards[i]
		s.mu.Lock()
		n += len(s.attempts)
		s.mu.Unlock()
	}
	return n
}

func (l *MemoryLimiter) shard(key string) *limiterShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &l.shards[h.Sum32()%limiterShards]
}

// prune keeps attempts younger than the window, reusing ts's backing array.
func (l *MemoryLimiter) prune(ts []time.Time, now time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if now.Sub(t) < l.window {
			kept = append(kept, t)
		}
	}
	return kept
}
