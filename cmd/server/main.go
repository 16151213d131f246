package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tankarena/arena/internal/audit"
	"github.com/tankarena/arena/internal/config"
	"github.com/tankarena/arena/internal/database"
	"github.com/tankarena/arena/internal/handler/health"
	"github.com/tankarena/arena/internal/leaderboard"
	"github.com/tankarena/arena/internal/migrations"
	"github.com/tankarena/arena/internal/room"
	"github.com/tankarena/arena/internal/scoring"
	"github.com/tankarena/arena/internal/server"
	"github.com/tankarena/arena/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "migrations_applied", applied)

	store := server.NewSQLiteStore(db)
	checks := map[string]health.Checker{"sqlite": health.CheckerFunc(db.PingContext)}

	// --- Redis (optional) ---
	var (
		ranking server.PlayerRanking
		cache   scoring.Leaderboard
	)
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		board := leaderboard.New(rdb, "")
		ranking, cache = board, board
		checks["redis"] = board

		bests, err := store.TopPlayers(ctx, -1)
		if err != nil {
			return fmt.Errorf("loading personal bests: %w", err)
		}
		if err := board.Warm(ctx, bests); err != nil {
			logger.Warn("warming leaderboard", "error", err)
		}
	}

	// --- Domain ---
	tokens, err := session.NewManager(cfg.TokenSecret, session.WithTTL(cfg.TokenTTL))
	if err != nil {
		return fmt.Errorf("creating session manager: %w", err)
	}
	rooms := room.NewRegistry(logger)
	finalizer := scoring.NewFinalizer(tokens, store, cache, logger)
	recorder := audit.NewRecorder(store, logger, cfg.AuditBuffer)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Store:            store,
		Rooms:            rooms,
		Tokens:           tokens,
		Finalizer:        finalizer,
		Audit:            recorder,
		Ranking:          ranking,
		Checks:           checks,
		SPADir:           cfg.SPADir,
		CORSOrigins:      cfg.CORSOrigins,
		RoomSendBuffer:   cfg.RoomSendBuffer,
		RoomWriteTimeout: cfg.RoomWriteTimeout,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	// The recorder outlives the HTTP server so requests still in flight
	// during shutdown are audited.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()

	g.Go(func() error {
		return recorder.Run(auditCtx)
	})

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		defer stopAudit()
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
