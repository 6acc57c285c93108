// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package events publishes VoteRecorded notifications after a vote is
// stored. Sinks are best effort: callers log failures and never fail the
// vote because of them.
package events
