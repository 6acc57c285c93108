// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateAdminKey(t *testing.T) {
	pollID := uuid.NewString()

	key := GenerateAdminKey(pollID, "admin-salt")

	// 32-byte HMAC in unpadded base64
	if len(key) != 43 {
		t.Errorf("Expected 43 character key, got %d (%q)", len(key), key)
	}
	if strings.ContainsAny(key, "=+/") {
		t.Errorf("Key %q is not URL-safe", key)
	}
	if key != GenerateAdminKey(pollID, "admin-salt") {
		t.Error("Admin key changed between calls")
	}
	if key == GenerateAdminKey(uuid.NewString(), "admin-salt") {
		t.Error("Different polls share an admin key")
	}
	if key == GenerateAdminKey(pollID, "other-salt") {
		t.Error("Admin key does not depend on the salt")
	}
}

func TestValidateAdminKey(t *testing.T) {
	pollID := uuid.NewString()
	salt := "test-salt"
	validKey := GenerateAdminKey(pollID, salt)

	tests := []struct {
		name     string
		pollID   string
		adminKey string
		salt     string
		wantErr  bool
	}{
		{"valid key", pollID, validKey, salt, false},
		{"garbage", pollID, "not base64 !!", salt, true},
		{"truncated", pollID, validKey[:20], salt, true},
		{"other poll", uuid.NewString(), validKey, salt, true},
		{"rotated salt", pollID, validKey, "rotated-salt", true},
		{"missing header", pollID, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.pollID, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidAdminKey) {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}
