// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package voting decides whether a vote attempt is admissible and records
// it.
//
// A submission passes through ParseVotePayload, then Service.Submit, which
// fingerprints the voter, consults the RateLimiter, loads the poll, checks
// option membership and EvaluatePermission, and finally asks the Store to
// replace the voter's votes atomically. Failures are returned as *Error with
// a Kind the HTTP layer maps to a status code.
//
// Two RateLimiter implementations are provided: MemoryLimiter for a single
// process and RedisLimiter for a shared sliding window.
package voting
