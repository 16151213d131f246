// Package audit records notable player actions without slowing the request
// that triggered them. Entries are queued in memory and written by a single
// background goroutine; a full queue drops the entry and logs it.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Actions recorded by the HTTP layer.
const (
	ActionRegister    = "register"
	ActionLogin       = "login"
	ActionStartGame   = "start-game"
	ActionSubmitScore = "submit-score"
	ActionNewRecord   = "new-record"
	ActionTokenReject = "token-rejected"
)

type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists audit entries.
type Repository interface {
	InsertAudit(ctx context.Context, e Entry) error
}

type Recorder struct {
	repo   Repository
	logger *slog.Logger
	queue  chan Entry
	now    func() time.Time
}

func NewRecorder(repo Repository, logger *slog.Logger, size int) *Recorder {
	if size < 1 {
		size = 1
	}
	return &Recorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan Entry, size),
		now:    time.Now,
	}
}

// Record queues an entry. It never blocks.
func (r *Recorder) Record(userID, username, action string) {
	e := Entry{
		UserID:    userID,
		Username:  username,
		Action:    action,
		CreatedAt: r.now().UTC(),
	}
	select {
	case r.queue <- e:
	default:
		r.logger.Warn("audit queue full, dropping entry", "user", username, "action", action)
	}
}

// Run writes queued entries until ctx is done, then flushes whatever is
// still queued.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return nil
		case e := <-r.queue:
			r.write(ctx, e)
		}
	}
}

func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case e := <-r.queue:
			r.write(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, e Entry) {
	if err := r.repo.InsertAudit(ctx, e); err != nil {
		r.logger.Error("writing audit entry", "user", e.Username, "action", e.Action, "error", err)
	}
}
