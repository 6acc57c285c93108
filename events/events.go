// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"errors"
	"time"
)

// VoteRecorded is emitted once per successful vote submission.
type VoteRecorded struct {
	PollID            string    `json:"poll_id"`
	OptionsSelected   int       `json:"options_selected"`
	UserAuthenticated bool      `json:"user_authenticated"`
	IPHash            string    `json:"ip_hash"`
	Replaced          bool      `json:"replaced"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// Sink receives vote events.
type Sink interface {
	Emit(ctx context.Context, ev VoteRecorded) error
}

// Fanout emits to every sink and joins their errors. One failing sink does
// not stop the others.
type Fanout []Sink

func (f Fanout) Emit(ctx context.Context, ev VoteRecorded) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
