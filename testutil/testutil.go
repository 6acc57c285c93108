// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/google/uuid"
)

// SetupTestDB opens a fresh sqlite database in a temp dir with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.SQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:                 3318,
		DatabaseURL:          "file:test.db",
		DatabaseType:         "sqlite",
		AdminKeySalt:         "test-admin-salt",
		JWTSecret:            "test-jwt-secret",
		RateLimitMaxAttempts: 5,
		RateLimitWindow:      time.Minute,
		AllowVoteChange:      true,
		KafkaTopic:           cliparse.DefaultKafkaTopic,
		LogLevel:             "info",
	}
}

// PollOptions tweaks the poll CreateTestPoll inserts
type PollOptions struct {
	Inactive           bool
	RequireAuth        bool
	AllowMultipleVotes bool
	ExpiresAt          *time.Time
}

// CreateTestPoll creates an active poll in the database and returns its ID
func CreateTestPoll(t *testing.T, conn *sql.DB, opts PollOptions) string {
	t.Helper()

	pollID := uuid.NewString()
	now := time.Now().UTC()

	var expiresAt any
	if opts.ExpiresAt != nil {
		expiresAt = opts.ExpiresAt.UTC()
	}

	_, err := conn.Exec(`
		INSERT INTO poll (id, title, description, creator_id, is_active, require_auth,
		                  allow_multiple_votes, expires_at, total_votes, created_at, updated_at)
		VALUES ($1, 'Test Poll', 'A test poll', 'test-user', $2, $3, $4, $5, 0, $6, $7)
	`, pollID, !opts.Inactive, opts.RequireAuth, opts.AllowMultipleVotes, expiresAt, now, now)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID
}

// AddTestOption adds an option to a poll and returns the option ID
func AddTestOption(t *testing.T, conn *sql.DB, pollID, text string, position int) string {
	t.Helper()

	optionID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO poll_option (id, poll_id, text, position, vote_count)
		VALUES ($1, $2, $3, $4, 0)
	`, optionID, pollID, text, position)
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// CountVotes returns how many vote rows a poll has
func CountVotes(t *testing.T, conn *sql.DB, pollID string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM vote WHERE poll_id = $1`, pollID).Scan(&n); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(b)))
		req.Header.Set("Content-Type", "application/json")
	default:
		jsonBody, _ := json.Marshal(b)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
