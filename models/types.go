package models

import "time"

// MaxUserAgentLength bounds the user agent stored on a vote row.
const MaxUserAgentLength = 500

// Analytics event types
const (
	EventTypeVote = "vote"
)

// Request types

type CreatePollRequest struct {
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	CreatorID          string     `json:"creator_id"`
	Options            []string   `json:"options"`
	RequireAuth        bool       `json:"require_auth"`
	AllowMultipleVotes bool       `json:"allow_multiple_votes"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
}

// Nil fields are left unchanged.
type UpdatePollRequest struct {
	IsActive    *bool      `json:"is_active,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ClearExpiry bool       `json:"clear_expiry,omitempty"`
}

// Response types

type CreatePollResponse struct {
	PollID   string `json:"poll_id"`
	AdminKey string `json:"admin_key"`
}

type VoteData struct {
	VoteCount int            `json:"voteCount"`
	Results   []OptionResult `json:"results"`
}

type VoteResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    VoteData `json:"data"`
}

type ResultsResponse struct {
	Success bool           `json:"success"`
	Data    []OptionResult `json:"data"`
}

// VoteStatus tells a caller whether they already have live votes on a poll.
type VoteStatus struct {
	HasVoted  bool     `json:"hasVoted"`
	OptionIDs []string `json:"optionIds"`
}

type VoteStatusResponse struct {
	Success bool       `json:"success"`
	Data    VoteStatus `json:"data"`
}

// Domain types

type Poll struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        *string    `json:"description,omitempty"`
	CreatorID          *string    `json:"creator_id,omitempty"`
	IsActive           bool       `json:"is_active"`
	RequireAuth        bool       `json:"require_auth"`
	AllowMultipleVotes bool       `json:"allow_multiple_votes"`
	ExpiresAt          *time.Time `json:"expires_at,omitempty"`
	TotalVotes         int        `json:"total_votes"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Options            []Option   `json:"options"`
}

// HasOption reports whether optionID is one of the poll's registered options.
func (p Poll) HasOption(optionID string) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

type Option struct {
	ID        string `json:"id"`
	PollID    string `json:"poll_id"`
	Text      string `json:"text"`
	Position  int    `json:"position"`
	VoteCount int    `json:"vote_count"`
}

type Vote struct {
	ID               string    `json:"id"`
	PollID           string    `json:"poll_id"`
	OptionID         string    `json:"option_id"`
	UserID           *string   `json:"user_id,omitempty"`
	VoterFingerprint string    `json:"-"` // Never expose in JSON
	IPAddress        string    `json:"-"` // Never expose in JSON
	UserAgent        string    `json:"-"` // Never expose in JSON
	CreatedAt        time.Time `json:"created_at"`
}

// OptionResult is one row of a poll's tally, in option display order.
type OptionResult struct {
	OptionID   string `json:"option_id"`
	OptionText string `json:"option_text"`
	VoteCount  int    `json:"vote_count"`
}

// Error response

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
