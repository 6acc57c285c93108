// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"github.com/danielhkuo/quickly-vote/auth"
	"github.com/danielhkuo/quickly-vote/cliparse"
	"github.com/danielhkuo/quickly-vote/db"
	"github.com/danielhkuo/quickly-vote/handlers"
	"github.com/danielhkuo/quickly-vote/middleware"
	"github.com/danielhkuo/quickly-vote/voting"
)

// Dependencies are the long-lived components the routes serve from.
type Dependencies struct {
	Store   *db.Store
	Service *voting.Service
	Clock   clockwork.Clock
}

func NewRouter(deps Dependencies, cfg cliparse.Config) http.Handler {
	mux := http.NewServeMux()

	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	// Initialize handlers
	pollHandler := handlers.NewPollHandler(deps.Store, cfg, deps.Clock)
	votingHandler := handlers.NewVotingHandler(deps.Service)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Poll management (admin operations use X-Admin-Key)
	mux.HandleFunc("POST /polls", middleware.WithLogging(pollHandler.CreatePoll))
	mux.HandleFunc("GET /polls/{pollId}", middleware.WithLogging(pollHandler.GetPoll))
	mux.HandleFunc("PATCH /polls/{pollId}", middleware.WithLogging(pollHandler.UpdatePoll))
	mux.HandleFunc("DELETE /polls/{pollId}", middleware.WithLogging(pollHandler.DeletePoll))

	// Voting (public, optionally authenticated)
	mux.HandleFunc("POST /polls/{pollId}/vote", middleware.WithLogging(votingHandler.SubmitVote))
	mux.HandleFunc("GET /polls/{pollId}/vote", middleware.WithLogging(votingHandler.GetResults))
	mux.HandleFunc("GET /polls/{pollId}/vote/status", middleware.WithLogging(votingHandler.GetVoteStatus))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-vote API v1"))
	})

	identity := middleware.WithIdentity(auth.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer))

	return chimw.RequestID(chimw.Recoverer(middleware.CORS(identity(mux))))
}
