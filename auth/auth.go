// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token")
)

const adminKeyScope = "poll-admin:"

func adminKeyMAC(pollID, salt string) []byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(adminKeyScope))
	h.Write([]byte(pollID))
	return h.Sum(nil)
}

// GenerateAdminKey derives the key that authorizes updates and deletion of a
// poll. Keys are unpadded URL-safe base64 so they travel in headers as is.
func GenerateAdminKey(pollID, salt string) string {
	return base64.RawURLEncoding.EncodeToString(adminKeyMAC(pollID, salt))
}

// ValidateAdminKey checks adminKey against the poll in constant time.
func ValidateAdminKey(pollID, adminKey, salt string) error {
	if adminKey == "" {
		return ErrInvalidAdminKey
	}
	got, err := base64.RawURLEncoding.DecodeString(adminKey)
	if err != nil {
		return ErrInvalidAdminKey
	}
	if !hmac.Equal(got, adminKeyMAC(pollID, salt)) {
		return ErrInvalidAdminKey
	}
	return nil
}
