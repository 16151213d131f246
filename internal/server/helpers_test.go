package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/tankarena/arena/internal/database"
	"github.com/tankarena/arena/internal/migrations"
	"github.com/tankarena/arena/internal/room"
	"github.com/tankarena/arena/internal/scoring"
	"github.com/tankarena/arena/internal/session"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Up(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db)
}

// recordingAuditor collects actions synchronously.
type recordingAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (a *recordingAuditor) Record(_, username, action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, username+":"+action)
}

func (a *recordingAuditor) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.actions...)
}

type testEnv struct {
	handler http.Handler
	store   *SQLiteStore
	tokens  *session.Manager
	rooms   *room.Registry
	audit   *recordingAuditor
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()
	logger := quietLogger()
	store := newTestStore(t)

	tokens, err := session.NewManager("test-secret")
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	env := &testEnv{
		store:  store,
		tokens: tokens,
		rooms:  room.NewRegistry(logger),
		audit:  &recordingAuditor{},
	}
	deps := Deps{
		Store:            store,
		Rooms:            env.rooms,
		Tokens:           tokens,
		Finalizer:        scoring.NewFinalizer(tokens, store, nil, logger),
		Audit:            env.audit,
		RoomSendBuffer:   16,
		RoomWriteTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.handler = NewRouter(logger, deps)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, username string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users/register", CredentialsRequest{Username: username, Password: "hunter22"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
}

func (e *testEnv) startGame(t *testing.T, username string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/users/"+username+"/start-game", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("start-game %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp StartGameResponse
	decode(t, rec, &resp)
	return resp.GameToken
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	decode(t, rec, &body)
	return body.Error
}

func intPtr(n int) *int { return &n }
