package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/tankarena/arena/internal/handler/health"
	"github.com/tankarena/arena/internal/leaderboard"
	"github.com/tankarena/arena/internal/room"
	"github.com/tankarena/arena/internal/scoring"
	"github.com/tankarena/arena/internal/session"
)

// Auditor records notable player actions. Implementations must not block.
type Auditor interface {
	Record(userID, username, action string)
}

// PlayerRanking serves cached personal bests.
type PlayerRanking interface {
	Top(ctx context.Context, n int) ([]leaderboard.Entry, error)
}

type Deps struct {
	Store     Store
	Rooms     *room.Registry
	Tokens    *session.Manager
	Finalizer *scoring.Finalizer
	Audit     Auditor
	// Ranking is nil when no cache is configured; the store is used instead.
	Ranking PlayerRanking
	Checks  map[string]health.Checker

	SPADir      string
	CORSOrigins []string

	RoomSendBuffer   int
	RoomWriteTimeout time.Duration
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

func New(addr string, logger *slog.Logger, deps Deps) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(logger, deps),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter builds the full HTTP handler. It is exported for tests that
// drive the API through httptest.
func NewRouter(logger *slog.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler)

	addRoutes(r, logger, deps)
	return r
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
