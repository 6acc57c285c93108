// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides voter fingerprinting, admin keys, and identity tokens.

# Voter Fingerprints

A fingerprint is the pseudo-identity used to deduplicate and rate limit votes
without requiring an account:

	fp := auth.Fingerprint(ipAddress, userAgent, userID, pollID, now)

It is SHA-256 over ip|user agent|user (or "anonymous")|poll|day bucket, hex
encoded (64 chars). The day bucket is floor(unix millis / 86400000), so the
same voter gets a new fingerprint at each UTC midnight. The current time is
always passed in; nothing here reads the clock.

Two anonymous voters behind one NAT with the same browser share a fingerprint
for the day and count as one voter.

# Admin Keys

Admin keys use HMAC-SHA256 to create deterministic, verifiable keys:

	adminKey := auth.GenerateAdminKey(pollID, salt)
	err := auth.ValidateAdminKey(pollID, adminKey, salt)

The key is URL-safe base64 encoded without padding, so it never needs to be
stored.

# Identity Tokens

Accounts live with an external identity provider. TokenVerifier checks the
HS256 bearer tokens it issues and extracts the user ID:

	v := auth.NewTokenVerifier(secret, issuer)
	userID, err := v.UserID(token)

A nil verifier (no secret configured) treats every request as anonymous.
*/
package auth
