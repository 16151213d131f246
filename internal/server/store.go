package server

import (
	"context"
	"errors"
	"time"

	"github.com/tankarena/arena/internal/audit"
	"github.com/tankarena/arena/internal/leaderboard"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

type User struct {
	Username     string
	PasswordHash string
	IsActive     bool
	BestScore    int
	CreatedAt    time.Time
}

type ScoreItem struct {
	Username  string    `json:"username"`
	Score     int       `json:"score"`
	Level     int       `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

type Event struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	Type      string         `json:"event_type"`
	Data      map[string]any `json:"event_data"`
	CreatedAt time.Time      `json:"created_at"`
}

type PlayerTotals struct {
	TotalGames int
	TotalScore int
	MaxScore   int
}

// Highlight is the best single match inside a window.
type Highlight struct {
	Username string `json:"username"`
	Score    int    `json:"score"`
}

type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (User, error)
	GetUser(ctx context.Context, username string) (User, error)

	CountScores(ctx context.Context, username string) (int, error)
	RecentScores(ctx context.Context, username string, limit int) ([]ScoreItem, error)
	PlayerTotals(ctx context.Context, username string) (PlayerTotals, error)
	TopScores(ctx context.Context, limit int) ([]ScoreItem, error)
	LatestScores(ctx context.Context, limit int) ([]ScoreItem, error)
	TopPlayers(ctx context.Context, limit int) ([]leaderboard.Entry, error)

	CountUsers(ctx context.Context) (int, error)
	LevelDistribution(ctx context.Context, since time.Time) (map[int]int, error)
	Activity(ctx context.Context, since time.Time, hourly bool) (map[string]int, error)
	BestSince(ctx context.Context, since time.Time) (Highlight, error)

	InsertEvent(ctx context.Context, e Event) error
	RecentEvents(ctx context.Context, limit int) ([]Event, error)

	InsertAudit(ctx context.Context, e audit.Entry) error
	ListAudits(ctx context.Context, skip, limit int) ([]audit.Entry, error)
	ImportAudits(ctx context.Context, entries []audit.Entry) (int, error)
}
