package server

import (
	"log/slog"
	"net/http"
)

const rankingSize = 10

func handleTopScores(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scores, err := store.TopScores(r.Context(), rankingSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, scores)
	}
}

// handleTopPlayers serves personal bests from the cache when one is
// configured and falls back to the store when the cache errors or is empty.
func handleTopPlayers(logger *slog.Logger, store Store, ranking PlayerRanking) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ranking != nil {
			entries, err := ranking.Top(r.Context(), rankingSize)
			if err == nil && len(entries) > 0 {
				writeJSON(w, http.StatusOK, entries)
				return
			}
			if err != nil {
				logger.Warn("leaderboard cache unavailable, using store", "error", err)
			}
		}

		entries, err := store.TopPlayers(r.Context(), rankingSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
