package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tankarena/arena/internal/room"
)

func handleRoomStats(rooms *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rooms.Stats())
	}
}

func handleRoomSnapshot(rooms *room.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := rooms.Snapshot(chi.URLParam(r, "room"))
		if errors.Is(err, room.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}
