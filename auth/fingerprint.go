// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	dayMillis     = int64(24 * time.Hour / time.Millisecond)
	anonymousUser = "anonymous"
	maskedField   = "masked"
)

// Fingerprint derives a voter's pseudo-identity for one poll and one UTC day.
// An empty userID is treated as an anonymous voter. The result is 64 lowercase
// hex characters (SHA-256).
//
// Voters sharing an IP and user agent without logging in collide for the day.
func Fingerprint(ipAddress, userAgent, userID, pollID string, now time.Time) string {
	if userID == "" {
		userID = anonymousUser
	}

	combined := strings.Join([]string{
		ipAddress,
		userAgent,
		userID,
		pollID,
		strconv.FormatInt(DayBucket(now), 10),
	}, "|")

	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

// DayBucket returns floor(unix millis / 24h).
func DayBucket(now time.Time) int64 {
	ms := now.UnixMilli()
	bucket := ms / dayMillis
	if ms%dayMillis < 0 {
		bucket--
	}
	return bucket
}

// MaskedIPHash is a fingerprint with user agent and user masked out, so
// analytics can count distinct sources without storing the raw address.
func MaskedIPHash(ipAddress, pollID string, now time.Time) string {
	return Fingerprint(ipAddress, maskedField, maskedField, pollID, now)
}
