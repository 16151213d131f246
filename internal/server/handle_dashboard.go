package server

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	dashboardFeedSize = 10
	userGamesLimit    = 100
)

type DashboardResponse struct {
	TotalPlayers      int            `json:"total_players"`
	TotalGames        int            `json:"total_games"`
	LevelDistribution map[int]int    `json:"level_distribution"`
	RecentActivity    map[string]int `json:"recent_activity"`
	TopRanking        []ScoreItem    `json:"top_ranking"`
	LiveFeed          []ScoreItem    `json:"live_feed"`
	RecordOfTheDay    Highlight      `json:"record_of_the_day"`
	RecordInRange     Highlight      `json:"record_in_range"`
	ActiveRange       string         `json:"active_range"`
}

type UserStatsResponse struct {
	Username   string      `json:"username"`
	TotalGames int         `json:"total_games"`
	TotalScore int         `json:"total_score"`
	AvgScore   float64     `json:"avg_score"`
	MaxScore   int         `json:"max_score"`
	Games      []ScoreItem `json:"games"`
}

// rangeStart maps a dashboard range name to the start of its window.
// "all" starts at the zero time.
func rangeStart(name string, now time.Time) (time.Time, error) {
	switch name {
	case "", "all":
		return time.Time{}, nil
	case "today":
		return startOfDay(now), nil
	case "week":
		return now.Add(-7 * 24 * time.Hour), nil
	}
	return time.Time{}, fmt.Errorf("unknown range %q", name)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func handleDashboard(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("range")
		if name == "" {
			name = "all"
		}
		now := time.Now().UTC()
		since, err := rangeStart(name, now)
		if err != nil {
			writeError(w, http.StatusBadRequest, "range must be one of all, today, week")
			return
		}

		resp, err := buildDashboard(r, store, name, since, now)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func buildDashboard(r *http.Request, store Store, name string, since, now time.Time) (DashboardResponse, error) {
	ctx := r.Context()
	resp := DashboardResponse{ActiveRange: name}

	var err error
	if resp.TotalPlayers, err = store.CountUsers(ctx); err != nil {
		return resp, err
	}

	dist, err := store.LevelDistribution(ctx, since)
	if err != nil {
		return resp, err
	}
	resp.LevelDistribution = map[int]int{1: 0, 2: 0, 3: 0}
	for level, n := range dist {
		resp.LevelDistribution[level] = n
		resp.TotalGames += n
	}

	hourly := name == "today"
	activity, err := store.Activity(ctx, since, hourly)
	if err != nil {
		return resp, err
	}
	resp.RecentActivity = map[string]int{}
	if hourly {
		for h := 0; h < 24; h++ {
			resp.RecentActivity[fmt.Sprintf("%02d:00", h)] = 0
		}
	}
	for k, n := range activity {
		resp.RecentActivity[k] = n
	}

	if resp.TopRanking, err = store.TopScores(ctx, dashboardFeedSize); err != nil {
		return resp, err
	}
	if resp.LiveFeed, err = store.LatestScores(ctx, dashboardFeedSize); err != nil {
		return resp, err
	}
	if resp.RecordOfTheDay, err = store.BestSince(ctx, startOfDay(now)); err != nil {
		return resp, err
	}
	if resp.RecordInRange, err = store.BestSince(ctx, since); err != nil {
		return resp, err
	}
	return resp, nil
}

func handleDashboardUser(store Store) http.HandlerFunc {
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

		totals, err := store.PlayerTotals(r.Context(), username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		games, err := store.RecentScores(r.Context(), username, userGamesLimit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := UserStatsResponse{
			Username:   username,
			TotalGames: totals.TotalGames,
			TotalScore: totals.TotalScore,
			MaxScore:   totals.MaxScore,
			Games:      games,
		}
		if totals.TotalGames > 0 {
			avg := float64(totals.TotalScore) / float64(totals.TotalGames)
			resp.AvgScore = math.Round(avg*100) / 100
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
