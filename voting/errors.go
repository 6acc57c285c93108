// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"errors"
	"fmt"
)

// Kind classifies why a vote attempt failed.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindPermission
	KindRateLimited
	KindDuplicate
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission_denied"
	case KindRateLimited:
		return "rate_limited"
	case KindDuplicate:
		return "duplicate_conflict"
	case KindStorage:
		return "storage_fault"
	default:
		return "unknown"
	}
}

// Caller-facing messages. Clients match on these strings.
const (
	MsgInvalidVoteData  = "Invalid vote data"
	MsgInvalidOption    = "Invalid option selected"
	MsgPollNotFound     = "Poll not found"
	MsgDuplicateVote    = "Vote already recorded"
	MsgRateLimited      = "Too many vote attempts. Please try again later."
	MsgRecordFailed     = "Failed to record vote"
	MsgValidateFailed   = "Failed to validate vote"
	MsgResultsFailed    = "Failed to fetch results"
	MsgStatusFailed     = "Failed to check vote status"
	MsgVoteRecorded     = "Vote recorded successfully"
	MsgNotActive        = "Poll is not active"
	MsgExpired          = "Poll has expired"
	MsgAuthRequired     = "Authentication required to vote"
	MsgAlreadyVoted     = "You have already voted on this poll"
	MsgPollIDRequired   = "Valid poll ID is required"
	MsgOptionIDRequired = "Valid option ID is required"
	MsgNoOptions        = "At least one option must be selected"
	MsgTooManyOptions   = "Too many options selected"
)

// Error is a typed vote failure. Message is safe to show to the caller;
// Err carries internal detail for logs only.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or KindStorage for untyped errors.
func KindOf(err error) Kind {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindStorage
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
