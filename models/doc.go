// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: title, description, options, require_auth, allow_multiple_votes, expires_at
  - UpdatePollRequest: is_active, expires_at, clear_expiry

Vote bodies are not decoded into a struct here; see voting.ParseVotePayload.

# Response Types

Types for JSON responses:

  - CreatePollResponse: poll_id, admin_key
  - VoteResponse: success, message, data{voteCount, results}
  - ResultsResponse: success, data
  - ErrorResponse: error, details

# Domain Types

  - Poll: poll settings, counters, and ordered options
  - Option: a poll choice with its display position and counter
  - Vote: one persisted vote row, keyed by voter fingerprint
  - OptionResult: aggregated count for one option

# Errors

Storage sentinels shared by the db and voting packages:

	ErrPollNotFound
	ErrDuplicateVote
*/
package models
