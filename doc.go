// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Vote API server.

Quickly Vote is a single-choice and multi-choice polling service. Each
voter is identified per poll by a fingerprint derived from their network
address, user agent and (when signed in) user ID, so a repeat vote
replaces the previous one instead of adding to the tally.

# Starting the Server

The server reads a YAML file, environment variables (with .env support)
and CLI flags, in increasing order of precedence:

	DATABASE_URL=file:votes.db ADMIN_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --admin-salt ...

# Configuration

Required settings:

  - DATABASE_URL (-d): sqlite file path or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - CONFIG_FILE (-c): YAML configuration file
  - JWT_SECRET (--jwt-secret), JWT_ISSUER: bearer token verification
  - REDIS_URL (--redis): shared rate limiter backend
  - RATE_LIMIT_MAX_ATTEMPTS, RATE_LIMIT_WINDOW: vote attempt throttling
  - ALLOW_VOTE_CHANGE (--allow-vote-change): let voters replace their vote
  - KAFKA_BROKERS, KAFKA_TOPIC: publish vote events
  - LOG_LEVEL (--log-level): debug, info, warn or error

# Architecture

  - voting: validation, permissions, rate limiting and the vote service
  - events: vote event sinks (analytics table, Kafka)
  - handlers: HTTP request handlers (polls, votes)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, identity, JSON helpers
  - models: Request/response and domain types
  - auth: Fingerprints, bearer tokens, admin keys
  - db: Connection, schema and store
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
