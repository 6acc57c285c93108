// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/danielhkuo/quickly-vote/events"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Store is the relational persistence for polls, options, votes and
// analytics events.
type Store struct {
	db      *sql.DB
	dialect Dialect
	clock   clockwork.Clock
}

func NewStore(db *sql.DB, dialect Dialect, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, dialect: dialect, clock: clock}
}

// GetPoll loads a poll with its options in display order.
func (s *Store) GetPoll(ctx context.Context, pollID string) (models.Poll, error) {
	var (
		p           models.Poll
		description sql.NullString
		creatorID   sql.NullString
		expiresAt   sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, creator_id, is_active, require_auth,
		       allow_multiple_votes, expires_at, total_votes, created_at, updated_at
		FROM poll WHERE id = $1
	`, pollID).Scan(&p.ID, &p.Title, &description, &creatorID, &p.IsActive, &p.RequireAuth,
		&p.AllowMultipleVotes, &expiresAt, &p.TotalVotes, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return models.Poll{}, models.ErrPollNotFound
	}
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query poll: %w", err)
	}

	if description.Valid {
		p.Description = &description.String
	}
	if creatorID.Valid {
		p.CreatorID = &creatorID.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time.UTC()
		p.ExpiresAt = &t
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, text, position, vote_count
		FROM poll_option WHERE poll_id = $1
		ORDER BY position, id
	`, pollID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	p.Options = []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.VoteCount); err != nil {
			return models.Poll{}, fmt.Errorf("failed to scan option: %w", err)
		}
		p.Options = append(p.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return models.Poll{}, fmt.Errorf("failed to read options: %w", err)
	}

	return p, nil
}

// VotesByFingerprint returns the live votes a fingerprint holds on a poll.
func (s *Store) VotesByFingerprint(ctx context.Context, pollID, fingerprint string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, poll_id, option_id, user_id, voter_fingerprint, ip_address, user_agent, created_at
		FROM vote WHERE poll_id = $1 AND voter_fingerprint = $2
		ORDER BY created_at, id
	`, pollID, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	var votes []models.Vote
	for rows.Next() {
		var (
			v      models.Vote
			userID sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionID, &userID, &v.VoterFingerprint,
			&v.IPAddress, &v.UserAgent, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		if userID.Valid {
			v.UserID = &userID.String
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}

	return votes, nil
}

// ReplaceVotes inserts votes for a fingerprint in one transaction. When
// replace is set, the fingerprint's existing votes on the poll are deleted
// first; a failed delete aborts before anything is inserted. Option and poll
// counters are recomputed from the vote rows before commit.
//
// The poll row is locked first, so writers on one poll run one after another
// and the recount sees every committed vote. On PostgreSQL that is a row lock
// held until commit; SQLite runs on a single connection, which already
// serializes them. A poll deleted in the meantime yields ErrPollNotFound.
func (s *Store) ReplaceVotes(ctx context.Context, pollID, fingerprint string, replace bool, votes []models.Vote) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked string
	err = tx.QueryRowContext(ctx, lockPollQuery(s.dialect), pollID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, models.ErrPollNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lock poll: %w", err)
	}

	removed := 0
	if replace {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM vote WHERE poll_id = $1 AND voter_fingerprint = $2
		`, pollID, fingerprint)
		if err != nil {
			return 0, fmt.Errorf("failed to delete previous votes: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count deleted votes: %w", err)
		}
		removed = int(n)
	}

	for _, v := range votes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vote (id, poll_id, option_id, user_id, voter_fingerprint, ip_address, user_agent, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, v.ID, pollID, v.OptionID, nullable(v.UserID), fingerprint, v.IPAddress, v.UserAgent, v.CreatedAt)
		if isUniqueViolation(err) {
			return 0, models.ErrDuplicateVote
		}
		if err != nil {
			return 0, fmt.Errorf("failed to insert vote: %w", err)
		}
	}

	if err := s.recount(ctx, tx, pollID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit votes: %w", err)
	}

	return removed, nil
}

// lockPollQuery selects the poll row for the rest of the transaction.
func lockPollQuery(d Dialect) string {
	if d == Postgres {
		return `SELECT id FROM poll WHERE id = $1 FOR UPDATE`
	}
	return `SELECT id FROM poll WHERE id = $1`
}

func (s *Store) recount(ctx context.Context, tx *sql.Tx, pollID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE poll_option
		SET vote_count = (SELECT COUNT(*) FROM vote WHERE vote.option_id = poll_option.id)
		WHERE poll_id = $1
	`, pollID)
	if err != nil {
		return fmt.Errorf("failed to update option counts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE poll
		SET total_votes = (SELECT COUNT(*) FROM vote WHERE vote.poll_id = poll.id),
		    updated_at = $2
		WHERE id = $1
	`, pollID, s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update poll total: %w", err)
	}

	return nil
}

// Results tallies live votes per option in display order. A poll with no
// options yields an empty, non-nil slice.
func (s *Store) Results(ctx context.Context, pollID string) ([]models.OptionResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.text, COUNT(v.id)
		FROM poll_option o
		LEFT JOIN vote v ON v.option_id = o.id
		WHERE o.poll_id = $1
		GROUP BY o.id, o.text, o.position
		ORDER BY o.position, o.id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []models.OptionResult{}
	for rows.Next() {
		var r models.OptionResult
		if err := rows.Scan(&r.OptionID, &r.OptionText, &r.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	return results, nil
}

// CreatePoll inserts a poll and its options. IDs must already be set.
func (s *Store) CreatePoll(ctx context.Context, p models.Poll) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, title, description, creator_id, is_active, require_auth,
		                  allow_multiple_votes, expires_at, total_votes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
	`, p.ID, p.Title, nullable(p.Description), nullable(p.CreatorID), p.IsActive, p.RequireAuth,
		p.AllowMultipleVotes, nullable(p.ExpiresAt), p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	for _, opt := range p.Options {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO poll_option (id, poll_id, text, position, vote_count)
			VALUES ($1, $2, $3, $4, 0)
		`, opt.ID, p.ID, opt.Text, opt.Position)
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit poll: %w", err)
	}
	return nil
}

// UpdatePoll applies an activation or expiry change and returns the result.
func (s *Store) UpdatePoll(ctx context.Context, pollID string, req models.UpdatePollRequest) (models.Poll, error) {
	p, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}

	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.ClearExpiry {
		p.ExpiresAt = nil
	} else if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		p.ExpiresAt = &t
	}
	p.UpdatedAt = s.clock.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE poll SET is_active = $1, expires_at = $2, updated_at = $3 WHERE id = $4
	`, p.IsActive, nullable(p.ExpiresAt), p.UpdatedAt, pollID)
	if err != nil {
		return models.Poll{}, fmt.Errorf("failed to update poll: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Poll{}, models.ErrPollNotFound
	}

	return p, nil
}

// DeletePoll removes a poll; options, votes and analytics cascade.
func (s *Store) DeletePoll(ctx context.Context, pollID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM poll WHERE id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	if n == 0 {
		return models.ErrPollNotFound
	}
	return nil
}

// Emit records a vote event in poll_analytics. It satisfies events.Sink.
func (s *Store) Emit(ctx context.Context, ev events.VoteRecorded) error {
	metadata, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode analytics metadata: %w", err)
	}

	createdAt := ev.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO poll_analytics (id, poll_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), ev.PollID, models.EventTypeVote, string(metadata), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

// AnalyticsCount returns how many events of eventType a poll has.
func (s *Store) AnalyticsCount(ctx context.Context, pollID, eventType string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM poll_analytics WHERE poll_id = $1 AND event_type = $2
	`, pollID, eventType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count analytics events: %w", err)
	}
	return n, nil
}

var _ events.Sink = (*Store)(nil)

// nullable turns a nil pointer into a SQL NULL and dereferences the rest.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
