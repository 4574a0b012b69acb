package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// NewDB opens the session database. driver is "sqlite" for a local file or
// "pgx" for a shared Postgres instance.
func NewDB(ctx context.Context, driver, uri string) (*sql.DB, error) {
	switch driver {
	case "sqlite", "pgx":
	default:
		return nil, fmt.Errorf("unsupported session driver %q", driver)
	}

	db, err := sql.Open(driver, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if driver == "sqlite" {
		// one writer; sqlite serializes anyway and this avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return db, nil
}

func CloseDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Error("failed to close DB", "error", err)
	}
}
