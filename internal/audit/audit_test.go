package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (m *memRepo) InsertAudit(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecorderWritesInOrder(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, quietLogger(), 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = rec.Run(ctx)
		close(done)
	}()

	rec.Record("u1", "ana", ActionRegister)
	rec.Record("u1", "ana", ActionLogin)
	rec.Record("u1", "ana", ActionStartGame)

	require.Eventually(t, func() bool { return len(repo.actions()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{ActionRegister, ActionLogin, ActionStartGame}, repo.actions())
}

func TestRecorderFlushesOnShutdown(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, quietLogger(), 8)

	rec.Record("u1", "ana", ActionRegister)
	rec.Record("u2", "ben", ActionRegister)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))

	assert.Len(t, repo.actions(), 2)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	repo := &memRepo{}
	rec := NewRecorder(repo, quietLogger(), 1)

	rec.Record("u1", "ana", ActionLogin)
	rec.Record("u1", "ana", ActionLogin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rec.Run(ctx))

	assert.Len(t, repo.actions(), 1)
}

func TestRecorderSurvivesRepositoryErrors(t *testing.T) {
	repo := &memRepo{err: errors.New("disk full")}
	rec := NewRecorder(repo, quietLogger(), 4)

	rec.Record("u1", "ana", ActionLogin)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, rec.Run(ctx))
}
