package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tankarena/arena/internal/session"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 200
)

type CreateEventRequest struct {
	GameToken string         `json:"game_token"`
	EventType string         `json:"event_type" validate:"required,max=64"`
	EventData map[string]any `json:"event_data"`
}

type CreateEventResponse struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

func handleCreateEvent(logger *slog.Logger, store Store, tokens *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateEventRequest
		if msg := decodeValid(r, &req); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		claims, err := tokens.Inspect(req.GameToken)
		if err != nil {
			writeError(w, http.StatusForbidden, session.Message(err))
			return
		}

		if req.EventData == nil {
			req.EventData = map[string]any{}
		}
		ev := Event{
			ID:        uuid.NewString(),
			Username:  claims.Subject,
			Type:      req.EventType,
			Data:      req.EventData,
			CreatedAt: time.Now().UTC(),
		}
		if err := store.InsertEvent(r.Context(), ev); err != nil {
			logger.Error("storing event", "player", ev.Username, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("telemetry event", "player", ev.Username, "type", ev.Type)
		writeJSON(w, http.StatusCreated, CreateEventResponse{Status: "ok", EventID: ev.ID})
	}
}

func handleRecentEvents(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, ok := queryInt(r, "limit", defaultEventLimit)
		if !ok || limit < 1 || limit > maxEventLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}

		events, err := store.RecentEvents(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}
