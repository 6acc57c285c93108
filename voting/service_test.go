// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-vote/events"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/jonboulle/clockwork"
)

// fakeStore keeps votes in memory and lets tests inject failures.
type fakeStore struct {
	mu    sync.Mutex
	polls map[string]models.Poll
	votes []models.Vote

	getPollErr   error
	lookupErr    error
	deleteErr    error
	insertErr    error
	resultsErr   error
	replaceCalls int
}

func newFakeStore(polls ...models.Poll) *fakeStore {
	s := &fakeStore{polls: make(map[string]models.Poll)}
	for _, p := range polls {
		s.polls[p.ID] = p
	}
	return s
}

func (s *fakeStore) GetPoll(_ context.Context, pollID string) (models.Poll, error) {
	if s.getPollErr != nil {
		return models.Poll{}, s.getPollErr
	}
	p, ok := s.polls[pollID]
	if !ok {
		return models.Poll{}, models.ErrPollNotFound
	}
	return p, nil
}

func (s *fakeStore) VotesByFingerprint(_ context.Context, pollID, fingerprint string) ([]models.Vote, error) {
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Vote
	for _, v := range s.votes {
		if v.PollID == pollID && v.VoterFingerprint == fingerprint {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *fakeStore) ReplaceVotes(_ context.Context, pollID, fingerprint string, replace bool, votes []models.Vote) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++

	kept := s.votes
	removed := 0
	if replace {
		if s.deleteErr != nil {
			return 0, s.deleteErr
		}
		kept = nil
		for _, v := range s.votes {
			if v.PollID == pollID && v.VoterFingerprint == fingerprint {
				removed++
				continue
			}
			kept = append(kept, v)
		}
	}

	if s.insertErr != nil {
		return 0, s.insertErr
	}
	for _, nv := range votes {
		for _, v := range kept {
			if v.PollID == nv.PollID && v.VoterFingerprint == nv.VoterFingerprint && v.OptionID == nv.OptionID {
				return 0, models.ErrDuplicateVote
			}
		}
	}

	s.votes = append(kept, votes...)
	return removed, nil
}

func (s *fakeStore) Results(_ context.Context, pollID string) ([]models.OptionResult, error) {
	if s.resultsErr != nil {
		return nil, s.resultsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.polls[pollID]
	results := []models.OptionResult{}
	for _, opt := range p.Options {
		n := 0
		for _, v := range s.votes {
			if v.OptionID == opt.ID {
				n++
			}
		}
		results = append(results, models.OptionResult{OptionID: opt.ID, OptionText: opt.Text, VoteCount: n})
	}
	return results, nil
}

type capturingSink struct {
	events []events.VoteRecorded
	err    error
}

func (c *capturingSink) Emit(_ context.Context, ev events.VoteRecorded) error {
	c.events = append(c.events, ev)
	return c.err
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("limiter down")
}

func (failingLimiter) Reset(context.Context, string) error {
	return errors.New("limiter down")
}

var serviceNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func testPoll(id string, multi bool) models.Poll {
	return models.Poll{
		ID:                 id,
		Title:              "Lunch?",
		IsActive:           true,
		AllowMultipleVotes: multi,
		Options: []models.Option{
			{ID: "opt1", PollID: id, Text: "Pizza", Position: 0},
			{ID: "opt2", PollID: id, Text: "Tacos", Position: 1},
		},
	}
}

func newTestService(store Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewFakeClockAt(serviceNow)
	}
	return NewService(store, opts)
}

func ballot(pollID string, options ...string) Ballot {
	return Ballot{
		PollID:    pollID,
		OptionIDs: options,
		IPAddress: "203.0.113.5",
		UserAgent: "test-agent",
	}
}

func counts(results []models.OptionResult) map[string]int {
	m := make(map[string]int)
	for _, r := range results {
		m[r.OptionID] = r.VoteCount
	}
	return m
}

func assertKind(t *testing.T, err error, want Kind, wantMsg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", want)
	}
	var ve *Error
	if !errors.As(err, &ve) {
		t.Fatalf("Expected *Error, got %T: %v", err, err)
	}
	if ve.Kind != want {
		t.Errorf("Kind = %s, want %s", ve.Kind, want)
	}
	if wantMsg != "" && ve.Message != wantMsg {
		t.Errorf("Message = %q, want %q", ve.Message, wantMsg)
	}
}

func TestSubmit_SingleVoteReplacement(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testPoll("poll-1", false))
	sink := &capturingSink{}
	svc := newTestService(store, Options{AllowVoteChange: true, Sink: sink})

	receipt, err := svc.Submit(ctx, ballot("poll-1", "opt1"))
	if err != nil {
		t.Fatalf("First vote failed: %v", err)
	}
	if receipt.VoteCount != 1 {
		t.Errorf("VoteCount = %d, want 1", receipt.VoteCount)
	}
	if c := counts(receipt.Results); c["opt1"] != 1 || c["opt2"] != 0 {
		t.Errorf("After first vote counts = %v", c)
	}

	receipt, err = svc.Submit(ctx, ballot("poll-1", "opt2"))
	if err != nil {
		t.Fatalf("Second vote failed: %v", err)
	}
	if c := counts(receipt.Results); c["opt1"] != 0 || c["opt2"] != 1 {
		t.Errorf("After replacement counts = %v, want opt1=0 opt2=1", c)
	}
	if receipt.Replaced != 1 {
		t.Errorf("Replaced = %d, want 1", receipt.Replaced)
	}

	if len(store.votes) != 1 || store.votes[0].OptionID != "opt2" {
		t.Errorf("Expected exactly one live vote for opt2, got %+v", store.votes)
	}

	if len(sink.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(sink.events))
	}
	if sink.events[0].Replaced || !sink.events[1].Replaced {
		t.Errorf("Replaced flags = %v, %v", sink.events[0].Replaced, sink.events[1].Replaced)
	}
	if sink.events[1].IPHash == "" || sink.events[1].IPHash == store.votes[0].VoterFingerprint {
		t.Error("Event should carry a masked IP hash distinct from the fingerprint")
	}
}

func TestSubmit_RepeatVoteRefusedWithoutVoteChange(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testPoll("poll-1", false))
	svc := newTestService(store, Options{AllowVoteChange: false})

	if _, err := svc.Submit(ctx, ballot("poll-1", "opt1")); err != nil {
		t.Fatalf("First vote failed: %v", err)
	}

	_, err := svc.Submit(ctx, ballot("poll-1", "opt2"))
	assertKind(t, err, KindPermission, MsgAlreadyVoted)

	if len(store.votes) != 1 || store.votes[0].OptionID != "opt1" {
		t.Errorf("Original vote should be untouched, got %+v", store.votes)
	}
}

func TestSubmit_MultipleVotes(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testPoll("poll-m", true))
	svc := newTestService(store, Options{AllowVoteChange: true})

	receipt, err := svc.Submit(ctx, ballot("poll-m", "opt1", "opt2"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if receipt.VoteCount != 2 {
		t.Errorf("VoteCount = %d, want 2", receipt.VoteCount)
	}

	// Same option again on a multi-vote poll hits the uniqueness guard.
	_, err = svc.Submit(ctx, ballot("poll-m", "opt1"))
	assertKind(t, err, KindDuplicate, MsgDuplicateVote)
}

func TestSubmit_Failures(t *testing.T) {
	expired := serviceNow.Add(-time.Hour)

	tests := []struct {
		name     string
		poll     models.Poll
		ballot   Ballot
		setup    func(*fakeStore)
		wantKind Kind
		wantMsg  string
	}{
		{
			name:     "unknown poll",
			poll:     testPoll("poll-1", false),
			ballot:   ballot("missing", "opt1"),
			wantKind: KindNotFound,
			wantMsg:  MsgPollNotFound,
		},
		{
			name:     "poll lookup fault",
			poll:     testPoll("poll-1", false),
			ballot:   ballot("poll-1", "opt1"),
			setup:    func(s *fakeStore) { s.getPollErr = errors.New("connection reset") },
			wantKind: KindStorage,
			wantMsg:  MsgValidateFailed,
		},
		{
			name:     "foreign option rejects whole ballot",
			poll:     testPoll("poll-1", true),
			ballot:   ballot("poll-1", "opt1", "not-an-option"),
			wantKind: KindValidation,
			wantMsg:  MsgInvalidOption,
		},
		{
			name: "inactive poll",
			poll: func() models.Poll {
				p := testPoll("poll-1", false)
				p.IsActive = false
				return p
			}(),
			ballot:   ballot("poll-1", "opt1"),
			wantKind: KindPermission,
			wantMsg:  MsgNotActive,
		},
		{
			name: "expired poll",
			poll: func() models.Poll {
				p := testPoll("poll-1", false)
				p.ExpiresAt = &expired
				return p
			}(),
			ballot:   ballot("poll-1", "opt1"),
			wantKind: KindPermission,
			wantMsg:  MsgExpired,
		},
		{
			name: "auth required",
			poll: func() models.Poll {
				p := testPoll("poll-1", false)
				p.RequireAuth = true
				return p
			}(),
			ballot:   ballot("poll-1", "opt1"),
			wantKind: KindPermission,
			wantMsg:  MsgAuthRequired,
		},
		{
			name:     "existing vote lookup fault",
			poll:     testPoll("poll-1", false),
			ballot:   ballot("poll-1", "opt1"),
			setup:    func(s *fakeStore) { s.lookupErr = errors.New("timeout") },
			wantKind: KindStorage,
			wantMsg:  MsgValidateFailed,
		},
		{
			name:     "poll deleted before write",
			poll:     testPoll("poll-1", false),
			ballot:   ballot("poll-1", "opt1"),
			setup:    func(s *fakeStore) { s.insertErr = models.ErrPollNotFound },
			wantKind: KindNotFound,
			wantMsg:  MsgPollNotFound,
		},
		{
			name:     "insert fault",
			poll:     testPoll("poll-1", false),
			ballot:   ballot("poll-1", "opt1"),
			setup:    func(s *fakeStore) { s.insertErr = errors.New("disk full") },
			wantKind: KindStorage,
			wantMsg:  MsgRecordFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(tt.poll)
			if tt.setup != nil {
				tt.setup(store)
			}
			svc := newTestService(store, Options{AllowVoteChange: true})

			_, err := svc.Submit(context.Background(), tt.ballot)
			assertKind(t, err, tt.wantKind, tt.wantMsg)

			if len(store.votes) != 0 {
				t.Errorf("No votes should be stored, got %d", len(store.votes))
			}
		})
	}
}

func TestSubmit_DeleteFailureKeepsPriorVote(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testPoll("poll-1", false))
	svc := newTestService(store, Options{AllowVoteChange: true})

	if _, err := svc.Submit(ctx, ballot("poll-1", "opt1")); err != nil {
		t.Fatalf("First vote failed: %v", err)
	}

	store.deleteErr = errors.New("delete failed")
	_, err := svc.Submit(ctx, ballot("poll-1", "opt2"))
	assertKind(t, err, KindStorage, MsgRecordFailed)

	if len(store.votes) != 1 || store.votes[0].OptionID != "opt1" {
		t.Errorf("Prior vote should survive a failed delete, got %+v", store.votes)
	}
}

func TestSubmit_RateLimited(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(serviceNow)
	store := newFakeStore(testPoll("poll-1", false))
	svc := newTestService(store, Options{
		Clock:   clock,
		Limiter: NewMemoryLimiter(clock, 2, time.Minute),
	})

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(ctx, ballot("poll-1", "bogus"))
		assertKind(t, err, KindValidation, MsgInvalidOption)
	}

	_, err := svc.Submit(ctx, ballot("poll-1", "opt1"))
	assertKind(t, err, KindRateLimited, MsgRateLimited)

	clock.Advance(time.Minute)
	if _, err := svc.Submit(ctx, ballot("poll-1", "opt1")); err != nil {
		t.Errorf("Vote after window should succeed, got %v", err)
	}
}

func TestSubmit_SuccessResetsLimiter(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(serviceNow)
	store := newFakeStore(testPoll("poll-1", false))
	svc := newTestService(store, Options{
		Clock:           clock,
		Limiter:         NewMemoryLimiter(clock, 2, time.Minute),
		AllowVoteChange: true,
	})

	for i := 0; i < 4; i++ {
		opt := "opt1"
		if i%2 == 1 {
			opt = "opt2"
		}
		if _, err := svc.Submit(ctx, ballot("poll-1", opt)); err != nil {
			t.Fatalf("Vote %d failed: %v", i+1, err)
		}
	}
}

func TestSubmit_LimiterFailureFailsOpen(t *testing.T) {
	store := newFakeStore(testPoll("poll-1", false))
	svc := newTestService(store, Options{Limiter: failingLimiter{}})

	if _, err := svc.Submit(context.Background(), ballot("poll-1", "opt1")); err != nil {
		t.Errorf("Vote should succeed when the limiter is unavailable, got %v", err)
	}
}

func TestSubmit_ResultsFailureStillSucceeds(t *testing.T) {
	store := newFakeStore(testPoll("poll-1", false))
	store.resultsErr = errors.New("aggregate failed")
	svc := newTestService(store, Options{})

	receipt, err := svc.Submit(context.Background(), ballot("poll-1", "opt1"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if receipt.Results == nil || len(receipt.Results) != 0 {
		t.Errorf("Results should be an empty list, got %#v", receipt.Results)
	}
}

func TestSubmit_SinkFailureIgnored(t *testing.T) {
	store := newFakeStore(testPoll("poll-1", false))
	sink := &capturingSink{err: errors.New("broker down")}
	svc := newTestService(store, Options{Sink: sink})

	if _, err := svc.Submit(context.Background(), ballot("poll-1", "opt1")); err != nil {
		t.Errorf("Sink errors must not fail the vote, got %v", err)
	}
	if len(sink.events) != 1 {
		t.Errorf("Expected one emit attempt, got %d", len(sink.events))
	}
}

func TestSubmit_StoredVoteFields(t *testing.T) {
	store := newFakeStore(testPoll("poll-1", false))
	svc := newTestService(store, Options{})

	b := ballot("poll-1", "opt1")
	b.UserID = "user-42"
	b.UserAgent = strings.Repeat("é", 600)

	if _, err := svc.Submit(context.Background(), b); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	v := store.votes[0]
	if v.UserID == nil || *v.UserID != "user-42" {
		t.Errorf("UserID = %v, want user-42", v.UserID)
	}
	if n := len([]rune(v.UserAgent)); n != models.MaxUserAgentLength {
		t.Errorf("UserAgent length = %d runes, want %d", n, models.MaxUserAgentLength)
	}
	if v.IPAddress != "203.0.113.5" {
		t.Errorf("IPAddress = %q", v.IPAddress)
	}
	if len(v.VoterFingerprint) != 64 {
		t.Errorf("Fingerprint should be 64 hex chars, got %q", v.VoterFingerprint)
	}
	if v.ID == "" {
		t.Error("Vote ID should be assigned")
	}
}

func TestResults(t *testing.T) {
	store := newFakeStore(testPoll("poll-1", false))
	svc := newTestService(store, Options{})

	results, err := svc.Results(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("Results() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 result rows, got %d", len(results))
	}

	store.resultsErr = errors.New("boom")
	_, err = svc.Results(context.Background(), "poll-1")
	assertKind(t, err, KindStorage, MsgResultsFailed)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"truncated", 5, "trunc"},
		{"ééé", 2, "éé"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestHasVoted(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(testPoll("poll-1", true))
	svc := newTestService(store, Options{AllowVoteChange: true})

	status, err := svc.HasVoted(ctx, ballot("poll-1"))
	if err != nil {
		t.Fatalf("HasVoted() error = %v", err)
	}
	if status.HasVoted || len(status.OptionIDs) != 0 {
		t.Errorf("Expected no votes, got %+v", status)
	}

	if _, err := svc.Submit(ctx, ballot("poll-1", "opt1", "opt2")); err != nil {
		t.Fatal(err)
	}

	status, err = svc.HasVoted(ctx, ballot("poll-1"))
	if err != nil {
		t.Fatalf("HasVoted() error = %v", err)
	}
	if !status.HasVoted || !reflect.DeepEqual(status.OptionIDs, []string{"opt1", "opt2"}) {
		t.Errorf("Expected votes for opt1 and opt2, got %+v", status)
	}

	_, err = svc.HasVoted(ctx, ballot("missing"))
	assertKind(t, err, KindNotFound, MsgPollNotFound)

	store.lookupErr = errors.New("timeout")
	_, err = svc.HasVoted(ctx, ballot("poll-1"))
	assertKind(t, err, KindStorage, MsgStatusFailed)
}
