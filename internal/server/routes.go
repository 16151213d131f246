package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/tankarena/arena/internal/handler/health"
)

const maxImportBytes = 8 << 20

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Tank Arena API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, deps.Checks).Routes())

	// Realtime rooms.
	r.Get("/ws/game/{room}/{player}", handleRoomSocket(logger, deps.Rooms, deps.RoomSendBuffer, deps.RoomWriteTimeout))
	r.Get("/api/rooms", handleRoomStats(deps.Rooms))
	r.Get("/api/rooms/{room}", handleRoomSnapshot(deps.Rooms))

	// Players and match lifecycle.
	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", handleRegister(deps.Store, deps.Audit))
		r.Post("/login", handleLogin(deps.Store, deps.Audit))
		r.Get("/{username}", handleProfile(deps.Store))
		r.Post("/{username}/start-game", handleStartGame(deps.Store, deps.Tokens, deps.Audit))
		r.Post("/{username}/submit-score", handleSubmitScore(logger, deps.Finalizer, deps.Audit))
	})

	r.Get("/api/ranking/top", handleTopScores(deps.Store))
	r.Get("/api/ranking/players", handleTopPlayers(logger, deps.Store, deps.Ranking))

	// Telemetry.
	r.Post("/api/events", handleCreateEvent(logger, deps.Store, deps.Tokens))
	r.Get("/api/events/recent", handleRecentEvents(deps.Store))

	// Dashboard.
	r.Get("/api/dashboard", handleDashboard(deps.Store))
	r.Get("/api/dashboard/user/{username}", handleDashboardUser(deps.Store))

	// Audit trail.
	r.Route("/api/audits", func(r chi.Router) {
		r.Get("/", handleListAudits(deps.Store))
		r.Post("/", handleCreateAudit(deps.Store))
		r.Get("/export/{format}", handleExportAudits(deps.Store))
		r.With(limitBody(maxImportBytes)).Post("/import/{format}", handleImportAudits(deps.Store))
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
