// Package sqlite stores conversations and users in an embedded SQLite
// database. It backs single-node deployments and local development.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"automatonbot/internal/domain/repositories"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so text comparison orders by time
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DBTX is the query surface shared by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens (creating if needed) the database at path and ensures the schema.
// Parent directories are created if needed.
func Open(path string, logger *slog.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection, not just the first
	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")

	db, err := sql.Open("sqlite", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return db, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at TEXT
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
			ON users(username) WHERE is_deleted = 0;

		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			structure_kind TEXT NOT NULL DEFAULT '',
			structure TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			deleted_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_owner
			ON conversations(owner_id, created_at);

		CREATE TABLE IF NOT EXISTS turns (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			diagram_code TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
		);

		CREATE INDEX IF NOT EXISTS idx_turns_conversation
			ON turns(conversation_id, seq);
	`
	_, err := db.Exec(schema)
	return err
}

// getExecutor returns the transaction stored in ctx, or db when there is none
func getExecutor(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := repositories.TxFrom[*sql.Tx](ctx); ok {
		return tx
	}
	return db
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// ClearData deletes every conversation and turn but keeps users and schema
func ClearData(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM turns"); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}
	return nil
}
