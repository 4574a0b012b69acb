package database

import (
	"context"
	"database/sql"
	"fmt"
)

// The session row is a singleton keyed by slot so every driver can upsert it
// with ON CONFLICT.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS client_session (
    slot TEXT PRIMARY KEY,
    sealed_token TEXT NOT NULL,
    profile TEXT NOT NULL,
    saved_at TIMESTAMP NOT NULL
);
`

func InitSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
