// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/auth"
)

func TestWithIdentity(t *testing.T) {
	verifier := auth.NewTokenVerifier("test-secret", "")
	other := auth.NewTokenVerifier("other-secret", "")

	valid, err := verifier.Issue("user-42", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	forged, err := other.Issue("user-42", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	testCases := []struct {
		name     string
		verifier *auth.TokenVerifier
		header   string
		expected string
	}{
		{"valid bearer token", verifier, "Bearer " + valid, "user-42"},
		{"lowercase scheme", verifier, "bearer " + valid, "user-42"},
		{"no header", verifier, "", ""},
		{"wrong scheme", verifier, "Basic " + valid, ""},
		{"empty token", verifier, "Bearer ", ""},
		{"wrong signature", verifier, "Bearer " + forged, ""},
		{"garbage token", verifier, "Bearer not-a-jwt", ""},
		{"auth disabled", nil, "Bearer " + valid, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			called := false
			handler := WithIdentity(tc.verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				got = UserIDFromContext(r.Context())
			}))

			req := httptest.NewRequest("POST", "/polls/p/vote", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if !called {
				t.Fatal("Expected next handler to be called")
			}
			if got != tc.expected {
				t.Errorf("Expected user id '%s', got '%s'", tc.expected, got)
			}
		})
	}
}
