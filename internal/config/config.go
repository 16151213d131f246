package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/arena.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:""`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// RedisURL enables the personal-best leaderboard cache. Empty disables it.
	RedisURL string `env:"REDIS_URL"`

	TokenSecret string        `env:"TOKEN_SECRET,required,notEmpty"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"10m"`

	RoomSendBuffer   int           `env:"ROOM_SEND_BUFFER" envDefault:"64"`
	RoomWriteTimeout time.Duration `env:"ROOM_WRITE_TIMEOUT" envDefault:"5s"`

	AuditBuffer int `env:"AUDIT_BUFFER" envDefault:"256"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.RoomSendBuffer < 1 {
		return nil, fmt.Errorf("ROOM_SEND_BUFFER must be at least 1, got %d", cfg.RoomSendBuffer)
	}
	if cfg.AuditBuffer < 1 {
		return nil, fmt.Errorf("AUDIT_BUFFER must be at least 1, got %d", cfg.AuditBuffer)
	}
	return &cfg, nil
}
