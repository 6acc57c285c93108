// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/events"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const eventTimeout = 2 * time.Second

// Store is the persistence the service needs. ReplaceVotes must be atomic:
// when replace is true it removes the fingerprint's existing votes on the
// poll before inserting, and either all of it happens or none of it does.
type Store interface {
	GetPoll(ctx context.Context, pollID string) (models.Poll, error)
	VotesByFingerprint(ctx context.Context, pollID, fingerprint string) ([]models.Vote, error)
	ReplaceVotes(ctx context.Context, pollID, fingerprint string, replace bool, votes []models.Vote) (removed int, err error)
	Results(ctx context.Context, pollID string) ([]models.OptionResult, error)
}

// Ballot is a validated vote submission plus the caller's identity.
type Ballot struct {
	PollID    string
	OptionIDs []string
	UserID    string
	IPAddress string
	UserAgent string
}

type Receipt struct {
	VoteCount int
	Replaced  int
	Results   []models.OptionResult
}

type Options struct {
	Clock   clockwork.Clock
	Limiter RateLimiter
	Sink    events.Sink
	// AllowVoteChange lets a repeat voter replace their earlier vote
	// instead of being refused.
	AllowVoteChange bool
}

type Service struct {
	store           Store
	limiter         RateLimiter
	sink            events.Sink
	clock           clockwork.Clock
	allowVoteChange bool
}

func NewService(store Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Limiter == nil {
		opts.Limiter = NewMemoryLimiter(opts.Clock, DefaultMaxAttempts, DefaultWindow)
	}
	return &Service{
		store:           store,
		limiter:         opts.Limiter,
		sink:            opts.Sink,
		clock:           opts.Clock,
		allowVoteChange: opts.AllowVoteChange,
	}
}

// Submit checks and records a ballot. Every failure is an *Error.
func (s *Service) Submit(ctx context.Context, b Ballot) (Receipt, error) {
	now := s.clock.Now()
	fingerprint := auth.Fingerprint(b.IPAddress, b.UserAgent, b.UserID, b.PollID, now)

	allowed, err := s.limiter.Allow(ctx, fingerprint)
	if err != nil {
		slog.Warn("rate limiter unavailable, allowing attempt", "error", err, "poll_id", b.PollID)
		allowed = true
	}
	if !allowed {
		slog.Info("vote rate limited", "poll_id", b.PollID)
		return Receipt{}, newError(KindRateLimited, MsgRateLimited, nil)
	}

	poll, err := s.store.GetPoll(ctx, b.PollID)
	if errors.Is(err, models.ErrPollNotFound) {
		return Receipt{}, newError(KindNotFound, MsgPollNotFound, err)
	}
	if err != nil {
		slog.Error("failed to load poll", "error", err, "poll_id", b.PollID)
		return Receipt{}, newError(KindStorage, MsgValidateFailed, err)
	}

	for _, optionID := range b.OptionIDs {
		if !poll.HasOption(optionID) {
			return Receipt{}, newError(KindValidation, MsgInvalidOption, nil)
		}
	}

	existing, err := s.store.VotesByFingerprint(ctx, poll.ID, fingerprint)
	if err != nil {
		slog.Error("failed to check existing votes", "error", err, "poll_id", poll.ID)
		return Receipt{}, newError(KindStorage, MsgValidateFailed, err)
	}

	blocking := existing
	if s.allowVoteChange {
		blocking = nil
	}
	if d := EvaluatePermission(poll, b.UserID, blocking, now); !d.Allowed {
		return Receipt{}, newError(KindPermission, d.Reason, nil)
	}

	votes := s.buildVotes(poll.ID, fingerprint, b, now)
	removed, err := s.store.ReplaceVotes(ctx, poll.ID, fingerprint, !poll.AllowMultipleVotes, votes)
	if errors.Is(err, models.ErrDuplicateVote) {
		return Receipt{}, newError(KindDuplicate, MsgDuplicateVote, err)
	}
	if errors.Is(err, models.ErrPollNotFound) {
		return Receipt{}, newError(KindNotFound, MsgPollNotFound, err)
	}
	if err != nil {
		slog.Error("failed to record vote", "error", err, "poll_id", poll.ID)
		return Receipt{}, newError(KindStorage, MsgRecordFailed, err)
	}

	if err := s.limiter.Reset(ctx, fingerprint); err != nil {
		slog.Warn("failed to reset rate limit", "error", err, "poll_id", poll.ID)
	}

	results, err := s.store.Results(ctx, poll.ID)
	if err != nil {
		slog.Error("failed to fetch results after vote", "error", err, "poll_id", poll.ID)
		results = []models.OptionResult{}
	}

	s.emit(ctx, events.VoteRecorded{
		PollID:            poll.ID,
		OptionsSelected:   len(votes),
		UserAuthenticated: b.UserID != "",
		IPHash:            auth.MaskedIPHash(b.IPAddress, poll.ID, now),
		Replaced:          removed > 0,
		OccurredAt:        now.UTC(),
	})

	slog.Info("vote recorded",
		"poll_id", poll.ID,
		"options", len(votes),
		"replaced", removed,
		"authenticated", b.UserID != "")

	return Receipt{VoteCount: len(votes), Replaced: removed, Results: results}, nil
}

// Results returns the live tally for a poll.
func (s *Service) Results(ctx context.Context, pollID string) ([]models.OptionResult, error) {
	results, err := s.store.Results(ctx, pollID)
	if err != nil {
		slog.Error("failed to fetch results", "error", err, "poll_id", pollID)
		return nil, newError(KindStorage, MsgResultsFailed, err)
	}
	if results == nil {
		results = []models.OptionResult{}
	}
	return results, nil
}

// HasVoted reports the live votes the caller's fingerprint holds on a poll
// today. Only PollID, UserID, IPAddress and UserAgent of b are used.
func (s *Service) HasVoted(ctx context.Context, b Ballot) (models.VoteStatus, error) {
	if _, err := s.store.GetPoll(ctx, b.PollID); errors.Is(err, models.ErrPollNotFound) {
		return models.VoteStatus{}, newError(KindNotFound, MsgPollNotFound, err)
	} else if err != nil {
		slog.Error("failed to load poll", "error", err, "poll_id", b.PollID)
		return models.VoteStatus{}, newError(KindStorage, MsgStatusFailed, err)
	}

	fingerprint := auth.Fingerprint(b.IPAddress, b.UserAgent, b.UserID, b.PollID, s.clock.Now())
	existing, err := s.store.VotesByFingerprint(ctx, b.PollID, fingerprint)
	if err != nil {
		slog.Error("failed to check existing votes", "error", err, "poll_id", b.PollID)
		return models.VoteStatus{}, newError(KindStorage, MsgStatusFailed, err)
	}

	status := models.VoteStatus{HasVoted: len(existing) > 0, OptionIDs: make([]string, 0, len(existing))}
	for _, v := range existing {
		status.OptionIDs = append(status.OptionIDs, v.OptionID)
	}
	return status, nil
}

func (s *Service) buildVotes(pollID, fingerprint string, b Ballot, now time.Time) []models.Vote {
	var userID *string
	if b.UserID != "" {
		id := b.UserID
		userID = &id
	}
	userAgent := truncate(b.UserAgent, models.MaxUserAgentLength)

	votes := make([]models.Vote, 0, len(b.OptionIDs))
	for _, optionID := range b.OptionIDs {
		votes = append(votes, models.Vote{
			ID:               uuid.NewString(),
			PollID:           pollID,
			OptionID:         optionID,
			UserID:           userID,
			VoterFingerprint: fingerprint,
			IPAddress:        b.IPAddress,
			UserAgent:        userAgent,
			CreatedAt:        now.UTC(),
		})
	}
	return votes
}

func (s *Service) emit(ctx context.Context, ev events.VoteRecorded) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := s.sink.Emit(ctx, ev); err != nil {
		slog.Warn("failed to emit vote event", "error", err, "poll_id", ev.PollID)
	}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
