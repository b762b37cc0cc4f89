package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates tables and indexes if they don't exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, prefix string) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Conversations + ` (
			id UUID PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			structure_kind TEXT NOT NULL DEFAULT '',
			structure JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Turns + ` (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES ` + tables.Conversations + `(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			diagram_code TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + prefix + `users_username_active ON ` + tables.Users + `(username) WHERE NOT is_deleted`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `conversations_owner ON ` + tables.Conversations + `(owner_id, created_at DESC) WHERE NOT is_deleted`,
		`CREATE INDEX IF NOT EXISTS idx_` + prefix + `turns_conversation ON ` + tables.Turns + `(conversation_id, seq)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// DropSchema drops all tables in reverse dependency order
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, logger *slog.Logger) error {
	for _, table := range []string{tables.Turns, tables.Conversations, tables.Users} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
		logger.Info("dropped table", "table", table)
	}
	return nil
}

// ClearData deletes every conversation and turn but keeps users and schema
func ClearData(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Turns); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM "+tables.Conversations); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}
