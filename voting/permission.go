// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"time"

	"github.com/danielhkuo/quickly-vote/models"
)

// Decision is the outcome of EvaluatePermission.
type Decision struct {
	Allowed bool
	Reason  string
}

// EvaluatePermission gates a vote on poll state and policy. Checks run in a
// fixed order and the first failure wins:
//
//  1. poll is active
//  2. poll is not expired (expiry strictly before now)
//  3. an authenticated user is present when the poll requires one
//  4. on single-vote polls, the fingerprint has no existing votes
func EvaluatePermission(poll models.Poll, userID string, existing []models.Vote, now time.Time) Decision {
	if !poll.IsActive {
		return Decision{Reason: MsgNotActive}
	}

	if poll.ExpiresAt != nil && poll.ExpiresAt.Before(now) {
		return Decision{Reason: MsgExpired}
	}

	if poll.RequireAuth && userID == "" {
		return Decision{Reason: MsgAuthRequired}
	}

	if !poll.AllowMultipleVotes && len(existing) > 0 {
		return Decision{Reason: MsgAlreadyVoted}
	}

	return Decision{Allowed: true}
}
