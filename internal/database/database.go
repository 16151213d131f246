// Package database opens the arena's SQLite database through libSQL.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"
)

// Memory opens a private in-memory database, used by tests.
const Memory = ":memory:"

// Score submissions and audit writes land concurrently; WAL plus a busy
// timeout keeps writers from failing on SQLITE_BUSY.
var pragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// Open connects to the database at path and applies the connection pragmas.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	// Each connection to :memory: is a separate database.
	if path == Memory {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := configure(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func configure(ctx context.Context, db *sql.DB) error {
	for _, p := range pragmas {
		// PRAGMAs return a row; libSQL refuses them through Exec.
		rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA %s=%s", p.name, p.value))
		if err != nil {
			return fmt.Errorf("setting %s: %w", p.name, err)
		}
		rows.Close()
	}
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}
