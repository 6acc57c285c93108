// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/models"
	"github.com/danielhkuo/quickly-vote/voting"
)

// maxVoteBody bounds the vote request body.
const maxVoteBody = 64 << 10

type VotingHandler struct {
	svc *voting.Service
}

func NewVotingHandler(svc *voting.Service) *VotingHandler {
	return &VotingHandler{svc: svc}
}

// SubmitVote handles POST /polls/{pollId}/vote
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxVoteBody))
	if err != nil {
		middleware.ErrorWithDetails(w, http.StatusBadRequest, voting.MsgInvalidVoteData,
			[]string{"Request body could not be read"})
		return
	}

	payload, result := voting.ParseVotePayload(body, voting.ParseOptions{
		RoutePollID:   pollID,
		InferOptionID: true,
	})
	if !result.Valid {
		slog.Warn("invalid vote payload", "poll_id", pollID, "errors", result.Errors)
		middleware.ErrorWithDetails(w, http.StatusBadRequest, voting.MsgInvalidVoteData, result.Errors)
		return
	}

	ipAddress, userAgent := middleware.ClientInfo(r)
	receipt, err := h.svc.Submit(r.Context(), voting.Ballot{
		PollID:    pollID,
		OptionIDs: payload.OptionIDs,
		UserID:    middleware.UserIDFromContext(r.Context()),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		writeVoteError(w, pollID, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{
		Success: true,
		Message: voting.MsgVoteRecorded,
		Data: models.VoteData{
			VoteCount: receipt.VoteCount,
			Results:   receipt.Results,
		},
	})
}

// GetResults handles GET /polls/{pollId}/vote
func (h *VotingHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")

	results, err := h.svc.Results(r.Context(), pollID)
	if err != nil {
		writeVoteError(w, pollID, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Success: true,
		Data:    results,
	})
}

// GetVoteStatus handles GET /polls/{pollId}/vote/status
func (h *VotingHandler) GetVoteStatus(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("pollId")

	ipAddress, userAgent := middleware.ClientInfo(r)
	status, err := h.svc.HasVoted(r.Context(), voting.Ballot{
		PollID:    pollID,
		UserID:    middleware.UserIDFromContext(r.Context()),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
	if err != nil {
		writeVoteError(w, pollID, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.VoteStatusResponse{
		Success: true,
		Data:    status,
	})
}

// writeVoteError maps a vote failure to its HTTP status. Storage faults
// were already logged with full detail by the service.
func writeVoteError(w http.ResponseWriter, pollID string, err error) {
	var ve *voting.Error
	if !errors.As(err, &ve) {
		slog.Error("unexpected vote error", "error", err, "poll_id", pollID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, voting.MsgRecordFailed)
		return
	}

	status := statusForKind(ve.Kind)
	if status < http.StatusInternalServerError {
		slog.Warn("vote rejected", "poll_id", pollID, "kind", ve.Kind.String(), "reason", ve.Message)
	}

	if len(ve.Details) > 0 {
		middleware.ErrorWithDetails(w, status, ve.Message, ve.Details)
		return
	}
	middleware.ErrorResponse(w, status, ve.Message)
}

func statusForKind(kind voting.Kind) int {
	switch kind {
	case voting.KindValidation:
		return http.StatusBadRequest
	case voting.KindNotFound:
		return http.StatusNotFound
	case voting.KindPermission:
		return http.StatusForbidden
	case voting.KindRateLimited:
		return http.StatusTooManyRequests
	case voting.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
