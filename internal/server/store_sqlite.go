package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tankarena/arena/internal/audit"
	"github.com/tankarena/arena/internal/leaderboard"
	"github.com/tankarena/arena/internal/scoring"
)

// timeLayout matches strftime('%Y-%m-%dT%H:%M:%fZ') so stored timestamps
// compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// --- users ---

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (User, error) {
	u := User{Username: username, PasswordHash: passwordHash, IsActive: true}
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
		ON CONFLICT (username) DO NOTHING
		RETURNING created_at
	`, username, passwordHash).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserExists
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt, err = parseTime(createdAt)
	return u, err
}

func (s *SQLiteStore) GetUser(ctx context.Context, username string) (User, error) {
	var (
		u         User
		active    int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password_hash, is_active, best_score, created_at
		FROM users WHERE username = ?
	`, username).Scan(&u.Username, &u.PasswordHash, &active, &u.BestScore, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.IsActive = active == 1
	u.CreatedAt, err = parseTime(createdAt)
	return u, err
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

// --- score ledger ---

func (s *SQLiteStore) StoredBest(ctx context.Context, player string) (int, error) {
	var best int
	err := s.db.QueryRowContext(ctx, `
		SELECT best_score FROM users WHERE username = ?
	`, player).Scan(&best)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, scoring.ErrPlayerNotFound
	}
	return best, err
}

func (s *SQLiteStore) AppendScore(ctx context.Context, rec scoring.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (id, username, score, level, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.Player, rec.Score, rec.Level, formatTime(rec.CreatedAt))
	return err
}

func (s *SQLiteStore) MaxScore(ctx context.Context, player string) (int, error) {
	var best int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(score), 0) FROM scores WHERE username = ?
	`, player).Scan(&best)
	return best, err
}

func (s *SQLiteStore) RaiseBest(ctx context.Context, player string, best int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET best_score = ?
		WHERE username = ? AND best_score < ?
	`, best, player, best)
	return err
}

// --- score history & rankings ---

func (s *SQLiteStore) CountScores(ctx context.Context, username string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM scores WHERE username = ?
	`, username).Scan(&n)
	return n, err
}

func (s *SQLiteStore) RecentScores(ctx context.Context, username string, limit int) ([]ScoreItem, error) {
	return s.queryScores(ctx, `
		SELECT username, score, level, created_at FROM scores
		WHERE username = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, username, limit)
}

func (s *SQLiteStore) TopScores(ctx context.Context, limit int) ([]ScoreItem, error) {
	return s.queryScores(ctx, `
		SELECT username, score, level, created_at FROM scores
		ORDER BY score DESC, created_at ASC
		LIMIT ?
	`, limit)
}

func (s *SQLiteStore) LatestScores(ctx context.Context, limit int) ([]ScoreItem, error) {
	return s.queryScores(ctx, `
		SELECT username, score, level, created_at FROM scores
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
}

func (s *SQLiteStore) queryScores(ctx context.Context, query string, args ...any) ([]ScoreItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []ScoreItem{}
	for rows.Next() {
		var (
			it ScoreItem
			ts string
		)
		if err := rows.Scan(&it.Username, &it.Score, &it.Level, &ts); err != nil {
			return nil, err
		}
		if it.CreatedAt, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing score time: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) PlayerTotals(ctx context.Context, username string) (PlayerTotals, error) {
	var t PlayerTotals
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(score), 0), COALESCE(MAX(score), 0)
		FROM scores WHERE username = ?
	`, username).Scan(&t.TotalGames, &t.TotalScore, &t.MaxScore)
	return t, err
}

func (s *SQLiteStore) TopPlayers(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, best_score FROM users
		WHERE best_score > 0
		ORDER BY best_score DESC, username ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []leaderboard.Entry{}
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.Username, &e.BestScore); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- dashboard aggregates ---

func (s *SQLiteStore) LevelDistribution(ctx context.Context, since time.Time) (map[int]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT level, COUNT(*) FROM scores
		WHERE created_at >= ?
		GROUP BY level
	`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := map[int]int{}
	for rows.Next() {
		var level, n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		dist[level] = n
	}
	return dist, rows.Err()
}

// Activity counts matches per day, or per hour of day when hourly is set.
func (s *SQLiteStore) Activity(ctx context.Context, since time.Time, hourly bool) (map[string]int, error) {
	bucket := `substr(created_at, 1, 10)`
	if hourly {
		bucket = `substr(created_at, 12, 2) || ':00'`
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bucket+` AS bucket, COUNT(*) FROM scores
		WHERE created_at >= ?
		GROUP BY bucket
	`, formatTime(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activity := map[string]int{}
	for rows.Next() {
		var (
			raw any
			n   int
		)
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		activity[bucketKey(raw)] = n
	}
	return activity, rows.Err()
}

// bucketKey normalises an activity bucket. libSQL hands back date-shaped
// text as time.Time, so day buckets arrive that way.
func bucketKey(raw any) string {
	switch v := raw.(type) {
	case time.Time:
		if v.Year() <= 1 {
			return v.Format("15:04")
		}
		return v.UTC().Format("2006-01-02")
	case []byte:
		return string(v)
	case string:
		return v
	}
	return fmt.Sprint(raw)
}

// BestSince returns the highest single match at or after since. An empty
// window yields a zero Highlight.
func (s *SQLiteStore) BestSince(ctx context.Context, since time.Time) (Highlight, error) {
	var h Highlight
	err := s.db.QueryRowContext(ctx, `
		SELECT username, score FROM scores
		WHERE created_at >= ?
		ORDER BY score DESC, created_at ASC
		LIMIT 1
	`, formatTime(since)).Scan(&h.Username, &h.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return Highlight{}, nil
	}
	return h, err
}

// --- telemetry events ---

func (s *SQLiteStore) InsertEvent(ctx context.Context, e Event) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("encoding event data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, username, event_type, data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Username, e.Type, string(data), formatTime(e.CreatedAt))
	return err
}

func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, event_type, data, created_at FROM events
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var (
			e        Event
			data, ts string
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Type, &data, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, fmt.Errorf("decoding event %s: %w", e.ID, err)
		}
		if e.CreatedAt, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing event time: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- audits ---

func (s *SQLiteStore) InsertAudit(ctx context.Context, e audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audits (user_id, username, action, created_at)
		VALUES (?, ?, ?, ?)
	`, e.UserID, e.Username, e.Action, formatTime(e.CreatedAt))
	return err
}

// ListAudits returns entries newest first. A negative limit returns all.
func (s *SQLiteStore) ListAudits(ctx context.Context, skip, limit int) ([]audit.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(username, ''), action, created_at FROM audits
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, skip)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []audit.Entry{}
	for rows.Next() {
		var (
			e  audit.Entry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Username, &e.Action, &ts); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parsing audit time: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ImportAudits inserts entries in one transaction and returns how many
// were written.
func (s *SQLiteStore) ImportAudits(ctx context.Context, entries []audit.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for i, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO audits (user_id, username, action, created_at)
			VALUES (?, ?, ?, ?)
		`, e.UserID, e.Username, e.Action, formatTime(e.CreatedAt))
		if err != nil {
			return 0, fmt.Errorf("importing entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}
