package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema holds the message history. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id          TEXT PRIMARY KEY,
		contact_id  TEXT NOT NULL,
		content     TEXT NOT NULL,
		sent_at     TIMESTAMPTZ NOT NULL,
		is_own      BOOLEAN NOT NULL,
		status      TEXT NOT NULL,
		instance_id TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS messages_contact_sent_idx ON messages (contact_id, sent_at)`,
}

// Migrate creates the history tables if they do not exist.
func Migrate(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
