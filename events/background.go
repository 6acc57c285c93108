// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("event sink closed")
)

// Background hands events to a worker goroutine that delivers them to the
// wrapped sink, so a slow or unreachable downstream never holds up the
// caller. Events that do not fit in the queue are rejected, not waited on.
type Background struct {
	next    Sink
	timeout time.Duration
	queue   chan VoteRecorded
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewBackground starts the delivery worker. Each delivery is bounded by
// timeout.
func NewBackground(next Sink, size int, timeout time.Duration) *Background {
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	b := &Background{
		next:    next,
		timeout: timeout,
		queue:   make(chan VoteRecorded, size),
		done:    make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Background) Emit(_ context.Context, ev VoteRecorded) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	select {
	case b.queue <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

func (b *Background) run() {
	defer close(b.done)
	for ev := range b.queue {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		if err := b.next.Emit(ctx, ev); err != nil {
			slog.Error("failed to deliver vote event", "error", err, "poll_id", ev.PollID)
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be delivered,
// or for ctx to end.
func (b *Background) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.queue)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
