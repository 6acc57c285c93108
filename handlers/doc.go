// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Vote API.

# Handler Types

  - PollHandler: poll creation, lookup and admin updates
  - VotingHandler: vote submission and live results

Handlers are created via constructor functions:

	pollHandler := handlers.NewPollHandler(store, cfg, clock)
	votingHandler := handlers.NewVotingHandler(svc)

# Voting Flow

SubmitVote decodes and validates the body, resolves the caller's address,
user agent and (optional) authenticated user, then hands a voting.Ballot
to the voting service. Service errors carry a voting.Kind which maps onto
the response status:

	validation   → 400
	permission   → 403
	not found    → 404
	duplicate    → 409
	rate limited → 429
	storage      → 500

A vote from the same voter fingerprint replaces the previous one, so
changing a choice is a repeat POST.

# Admin Keys

Poll creation returns an admin_key derived from the poll ID with
HMAC-SHA256. PATCH and DELETE require it in the X-Admin-Key header.
*/
package handlers
