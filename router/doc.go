// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Vote API.

# Route Registration

NewRouter wires handlers onto an http.ServeMux and wraps it with the
request-scoped middleware stack:

	handler := router.NewRouter(router.Dependencies{
		Store:   store,
		Service: svc,
		Clock:   clock,
	}, cfg)

From the outside in, every request passes through request ID assignment,
panic recovery, CORS and bearer-token identity resolution.

# Endpoints

Health:

	GET /health

Poll management (update and delete require X-Admin-Key):

	POST   /polls           - Create poll
	GET    /polls/{pollId}  - Poll details with options
	PATCH  /polls/{pollId}  - Activate, deactivate, change expiry
	DELETE /polls/{pollId}  - Remove poll and its votes

Voting (public, bearer token optional):

	POST /polls/{pollId}/vote - Cast or replace a vote
	GET  /polls/{pollId}/vote - Live results
	GET  /polls/{pollId}/vote/status - Whether the caller has voted
*/
package router
