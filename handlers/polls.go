// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
)

const (
	minPollOptions = 2
	maxPollOptions = 20
)

// PollStore is the poll management persistence.
type PollStore interface {
	CreatePoll(ctx context.Context, p models.Poll) error
	GetPoll(ctx context.Context, pollID string) (models.Poll, error)
	UpdatePoll(ctx context.Context, pollID string, req models.UpdatePollRequest) (models.Poll, error)
	DeletePoll(ctx context.Context, pollID string) error
}

type PollHandler struct {
	store PollStore
	cfg   cliparse.Config
	clock clockwork.Clock
}

func NewPollHandler(store PollStore, cfg cliparse.Config, clock clockwork.Clock) *PollHandler {
	return &PollHandler{store: store, cfg: cfg, clock: clock}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	title := strings.TrimSpace(req.Title)
	if title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if len(req.Options) < minPollOptions || len(req.Options) > maxPollOptions {
		middleware.ErrorResponse(w, http.StatusBadRequest, "a poll needs between 2 and 20 options")
		return
	}

	now := h.clock.Now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "expires_at must be in the future")
		return
	}

	pollID := uuid.NewString()
	poll := models.Poll{
		ID:                 pollID,
		Title:              title,
		IsActive:           true,
		RequireAuth:        req.RequireAuth,
		AllowMultipleVotes: req.AllowMultipleVotes,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		poll.Description = &d
	}

	// An authenticated caller owns the poll regardless of the body.
	creator := middleware.UserIDFromContext(r.Context())
	if creator == "" {
		creator = req.CreatorID
	}
	if creator != "" {
		poll.CreatorID = &creator
	}

	if req.ExpiresAt != nil {
		t := req.ExpiresAt.UTC()
		poll.ExpiresAt = &t
	}

	for i, text := range req.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "option text cannot be empty")
			return
		}
		poll.Options = append(poll.Options, models.Option{
			ID:       uuid.NewString(),
			PollID:   pollID,
			Text:     text,
			Position: i,
		})
	}

	if err := h.store.CreatePoll(r.Context(), poll); err != nil {
		slog.Error("failed to insert poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	slog.Info("poll created", "poll_id", pollID, "options", len(poll.Options))

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID:   pollID,
		AdminKey: auth.GenerateAdminKey(pollID, h.cfg.AdminKeySalt),
	})
}

// GetPoll handles GET /polls/{pollId}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")

	poll, err := h.store.GetPoll(r.Context(), pollID)
	if errors.Is(err, models.ErrPollNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to query poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll)
}

// UpdatePoll handles PATCH /polls/{pollId}
func (h *PollHandler) UpdatePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if !h.authorized(w, r, pollID) {
		return
	}

	var req models.UpdatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	poll, err := h.store.UpdatePoll(r.Context(), pollID, req)
	if errors.Is(err, models.ErrPollNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to update poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update poll")
		return
	}

	slog.Info("poll updated", "poll_id", pollID, "is_active", poll.IsActive)
	middleware.JSONResponse(w, http.StatusOK, poll)
}

// DeletePoll handles DELETE /polls/{pollId}
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")
	if !h.authorized(w, r, pollID) {
		return
	}

	err := h.store.DeletePoll(r.Context(), pollID)
	if errors.Is(err, models.ErrPollNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		slog.Error("failed to delete poll", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete poll")
		return
	}

	slog.Info("poll deleted", "poll_id", pollID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PollHandler) authorized(w http.ResponseWriter, r *http.Request, pollID string) bool {
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(pollID, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}
