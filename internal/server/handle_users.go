package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/tankarena/arena/internal/audit"
	"github.com/tankarena/arena/internal/session"
)

const profileHistory = 5

type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=32,excludesall=/?#"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

// LoginRequest only requires both fields; length rules apply at registration.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	Username string `json:"username"`
	IsActive bool   `json:"is_active"`
	Score    int    `json:"score"`
}

type LoginResponse struct {
	Message  string `json:"message"`
	Username string `json:"username"`
}

type HistoryItem struct {
	Score     int       `json:"score"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

type ProfileResponse struct {
	UserResponse
	TotalGames int           `json:"total_games"`
	History    []HistoryItem `json:"history"`
}

type StartGameResponse struct {
	GameToken string    `json:"game_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func handleRegister(store Store, auditor Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if msg := decodeValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		user, err := store.CreateUser(r.Context(), req.Username, string(hash))
		if errors.Is(err, ErrUserExists) {
			writeError(w, http.StatusConflict, "username already registered")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		auditor.Record(user.Username, user.Username, audit.ActionRegister)
		writeJSON(w, http.StatusCreated, UserResponse{
			Username: user.Username,
			IsActive: user.IsActive,
			Score:    user.BestScore,
		})
	}
}

func handleLogin(store Store, auditor Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if msg := decodeValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		user, err := store.GetUser(r.Context(), req.Username)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		auditor.Record(user.Username, user.Username, audit.ActionLogin)
		writeJSON(w, http.StatusOK, LoginResponse{Message: "authenticated", Username: user.Username})
	}
}

func handleProfile(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		user, err := store.GetUser(r.Context(), username)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "player not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		total, err := store.CountScores(r.Context(), username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		recent, err := store.RecentScores(r.Context(), username, profileHistory)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		history := make([]HistoryItem, 0, len(recent))
		for _, s := range recent {
			history = append(history, HistoryItem{Score: s.Score, Level: s.Level, CreatedAt: s.CreatedAt})
		}

		writeJSON(w, http.StatusOK, ProfileResponse{
			UserResponse: UserResponse{
				Username: user.Username,
				IsActive: user.IsActive,
				Score:    user.BestScore,
			},
			TotalGames: total,
			History:    history,
		})
	}
}

func handleStartGame(store Store, tokens *session.Manager, auditor Auditor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		if _, err := store.GetUser(r.Context(), username); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "player not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, expiresAt, err := tokens.Issue(username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		auditor.Record(username, username, audit.ActionStartGame)
		writeJSON(w, http.StatusOK, StartGameResponse{GameToken: token, ExpiresAt: expiresAt})
	}
}
