// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "errors"

var (
	ErrPollNotFound  = errors.New("poll not found")
	ErrDuplicateVote = errors.New("duplicate vote")
)
