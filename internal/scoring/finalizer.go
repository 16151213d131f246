package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrPlayerNotFound is returned when the submitting player has no identity
// record.
var ErrPlayerNotFound = errors.New("player not found")

// State is the position of a submission in the finalization pipeline.
type State int

const (
	StatePending State = iota
	StateValidated
	StateScored
	StatePersisted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateValidated:
		return "validated"
	case StateScored:
		return "scored"
	case StatePersisted:
		return "persisted"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Record is one finalized match. Records are append-only.
type Record struct {
	ID        string
	Player    string
	Score     int
	Level     int
	CreatedAt time.Time
}

// TokenValidator verifies a match-session token for a player.
type TokenValidator interface {
	Validate(token, player string) error
}

// Ledger is the persistent score history plus the stored personal best.
type Ledger interface {
	// StoredBest returns the best score currently stored on the player, or
	// ErrPlayerNotFound.
	StoredBest(ctx context.Context, player string) (int, error)
	AppendScore(ctx context.Context, rec Record) error
	// MaxScore scans the player's full history.
	MaxScore(ctx context.Context, player string) (int, error)
	// RaiseBest stores best if it is greater than the stored value.
	RaiseBest(ctx context.Context, player string, best int) error
}

// Leaderboard is an optional cache of personal bests. SetBest must never
// lower a cached value.
type Leaderboard interface {
	SetBest(ctx context.Context, player string, best int) error
}

// Submission is the input to Finalize.
type Submission struct {
	Player string
	Token  string
	Stats  Stats
}

// Outcome is returned by a successful Finalize.
type Outcome struct {
	MatchScore  int
	IsNewRecord bool
	CurrentBest int
	Flagged     bool
	State       State
}

// RejectedError reports a submission that failed token validation. Err is
// the validator's error and carries the specific reason.
type RejectedError struct {
	Err error
}

func (e *RejectedError) Error() string { return "submission rejected: " + e.Err.Error() }
func (e *RejectedError) Unwrap() error { return e.Err }

type Finalizer struct {
	tokens      TokenValidator
	ledger      Ledger
	leaderboard Leaderboard
	logger      *slog.Logger
	now         func() time.Time
}

func NewFinalizer(tokens TokenValidator, ledger Ledger, leaderboard Leaderboard, logger *slog.Logger) *Finalizer {
	return &Finalizer{
		tokens:      tokens,
		ledger:      ledger,
		leaderboard: leaderboard,
		logger:      logger,
		now:         time.Now,
	}
}

// Finalize validates, scores and records a finished match, then reconciles
// the player's personal best against the full score history.
func (f *Finalizer) Finalize(ctx context.Context, sub Submission) (Outcome, error) {
	state := StatePending

	if err := f.tokens.Validate(sub.Token, sub.Player); err != nil {
		f.transition(sub.Player, state, StateRejected, "reason", err.Error())
		return Outcome{State: StateRejected}, &RejectedError{Err: err}
	}
	state = f.transition(sub.Player, state, StateValidated)

	prevBest, err := f.ledger.StoredBest(ctx, sub.Player)
	if err != nil {
		return Outcome{State: state}, fmt.Errorf("reading stored best: %w", err)
	}

	res := Calculate(sub.Stats)
	if res.Flagged {
		f.logger.Warn("implausible completion time",
			"player", sub.Player,
			"level", sub.Stats.LevelReached,
			"reported_seconds", sub.Stats.ElapsedSeconds,
			"floor_seconds", res.Floor,
			"scored_seconds", res.Elapsed,
		)
	}
	state = f.transition(sub.Player, state, StateScored, "score", res.Score)

	rec := Record{
		ID:        uuid.NewString(),
		Player:    sub.Player,
		Score:     res.Score,
		Level:     sub.Stats.LevelReached,
		CreatedAt: f.now().UTC(),
	}
	if err := f.ledger.AppendScore(ctx, rec); err != nil {
		return Outcome{State: state}, fmt.Errorf("appending score: %w", err)
	}
	state = f.transition(sub.Player, state, StatePersisted)

	trueMax, err := f.ledger.MaxScore(ctx, sub.Player)
	if err != nil {
		return Outcome{State: state}, fmt.Errorf("computing best score: %w", err)
	}
	if trueMax > prevBest {
		if err := f.ledger.RaiseBest(ctx, sub.Player, trueMax); err != nil {
			return Outcome{State: state}, fmt.Errorf("updating best score: %w", err)
		}
		f.logger.Info("personal best updated", "player", sub.Player, "previous", prevBest, "best", trueMax)
	}
	// Pushed on every match so a missed update is repaired by the next one.
	if f.leaderboard != nil && trueMax > 0 {
		if err := f.leaderboard.SetBest(ctx, sub.Player, trueMax); err != nil {
			f.logger.Error("leaderboard update failed", "player", sub.Player, "error", err)
		}
	}

	return Outcome{
		MatchScore:  res.Score,
		IsNewRecord: res.Score > prevBest,
		CurrentBest: trueMax,
		Flagged:     res.Flagged,
		State:       state,
	}, nil
}

func (f *Finalizer) transition(player string, from, to State, attrs ...any) State {
	f.logger.Debug("score submission",
		append([]any{"player", player, "from", from.String(), "to", to.String()}, attrs...)...)
	return to
}
