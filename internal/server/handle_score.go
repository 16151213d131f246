package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tankarena/arena/internal/audit"
	"github.com/tankarena/arena/internal/scoring"
	"github.com/tankarena/arena/internal/session"
)

type SubmitScoreRequest struct {
	ElapsedSeconds *int   `json:"elapsed_seconds" validate:"required,min=0"`
	DamageTaken    *int   `json:"damage_taken" validate:"required,min=0"`
	LevelReached   *int   `json:"level_reached" validate:"required,min=1,max=3"`
	SessionToken   string `json:"session_token"`
}

type SubmitScoreResponse struct {
	MatchScore  int  `json:"match_score"`
	IsNewRecord bool `json:"is_new_record"`
	CurrentBest int  `json:"current_best"`
}

func handleSubmitScore(logger *slog.Logger, finalizer *scoring.Finalizer, auditor Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		var req SubmitScoreRequest
		if msg := decodeValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		out, err := finalizer.Finalize(r.Context(), scoring.Submission{
			Player: username,
			Token:  req.SessionToken,
			Stats: scoring.Stats{
				ElapsedSeconds: *req.ElapsedSeconds,
				DamageTaken:    *req.DamageTaken,
				LevelReached:   *req.LevelReached,
			},
		})

		var rejected *scoring.RejectedError
		switch {
		case errors.As(err, &rejected):
			logger.Info("score submission rejected", "player", username, "reason", rejected.Err)
			auditor.Record(username, username, audit.ActionTokenReject)
			writeError(w, http.StatusForbidden, session.Message(rejected.Err))
			return
		case errors.Is(err, scoring.ErrPlayerNotFound):
			writeError(w, http.StatusNotFound, "player not found")
			return
		case err != nil:
			logger.Error("finalizing score", "player", username, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		auditor.Record(username, username, audit.ActionSubmitScore)
		if out.IsNewRecord {
			auditor.Record(username, username, audit.ActionNewRecord)
		}

		writeJSON(w, http.StatusOK, SubmitScoreResponse{
			MatchScore:  out.MatchScore,
			IsNewRecord: out.IsNewRecord,
			CurrentBest: out.CurrentBest,
		})
	}
}
