// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenVerifier_EmptySecret(t *testing.T) {
	if v := NewTokenVerifier("", "issuer"); v != nil {
		t.Error("Expected nil verifier for empty secret")
	}
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := NewTokenVerifier("test-jwt-secret", "quickly-vote")

	token, err := v.Issue("user-42", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	userID, err := v.UserID(token)
	if err != nil {
		t.Fatalf("UserID() error = %v", err)
	}
	if userID != "user-42" {
		t.Errorf("UserID() = %q, want %q", userID, "user-42")
	}
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := NewTokenVerifier("test-jwt-secret", "quickly-vote")
	other := NewTokenVerifier("other-secret", "quickly-vote")
	wrongIssuer := NewTokenVerifier("test-jwt-secret", "someone-else")

	expired, _ := v.Issue("user-1", time.Minute, time.Now().Add(-time.Hour))
	forged, _ := other.Issue("user-1", time.Hour, time.Now())
	foreign, _ := wrongIssuer.Issue("user-1", time.Hour, time.Now())

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"expired", expired},
		{"wrong secret", forged},
		{"wrong issuer", foreign},
		{"unsigned", noneAlg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.UserID(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("UserID() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestTokenVerifier_SubjectFallback(t *testing.T) {
	v := NewTokenVerifier("test-jwt-secret", "")

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "subject-user",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte("test-jwt-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	userID, err := v.UserID(token)
	if err != nil {
		t.Fatalf("UserID() error = %v", err)
	}
	if userID != "subject-user" {
		t.Errorf("UserID() = %q, want %q", userID, "subject-user")
	}
}
