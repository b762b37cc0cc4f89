package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/models/formal"
	"automatonbot/internal/domain/repositories"
)

// ConversationRepository implements repositories.ConversationRepository
type ConversationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *sql.DB, logger *slog.Logger) repositories.ConversationRepository {
	return &ConversationRepository{db: db, logger: logger}
}

// FindByID retrieves an active conversation with its turns
func (r *ConversationRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Conversation, error) {
	query := `
		SELECT id, owner_id, name, structure_kind, structure, created_at, updated_at
		FROM conversations
		WHERE id = ? AND owner_id = ? AND is_deleted = 0
	`

	executor := getExecutor(ctx, r.db)
	conv, err := scanConversation(executor.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying conversation: %w", err)
	}

	turns, err := loadTurns(ctx, executor, []string{conv.ID})
	if err != nil {
		return nil, err
	}
	conv.Turns = turns[conv.ID]
	if conv.Turns == nil {
		conv.Turns = []models.Turn{}
	}

	return conv, nil
}

// Save upserts the conversation row and inserts turns not stored yet
func (r *ConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	kind, structure, err := formal.Encode(conv.Structure)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var structureText sql.NullString
	if structure != nil {
		structureText = sql.NullString{String: string(structure), Valid: true}
	}

	query := `
		INSERT INTO conversations (id, owner_id, name, structure_kind, structure, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE
		SET name = excluded.name, updated_at = excluded.updated_at
		WHERE conversations.owner_id = excluded.owner_id AND conversations.is_deleted = 0
	`

	executor := getExecutor(ctx, r.db)
	res, err := executor.ExecContext(ctx, query,
		conv.ID,
		conv.OwnerID,
		conv.Name,
		string(kind),
		structureText,
		formatTime(conv.CreatedAt),
		formatTime(conv.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation %s: %w", conv.ID, domain.ErrNotFound)
	}

	insertTurn := `
		INSERT INTO turns (id, conversation_id, seq, question, answer, diagram_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	for i, turn := range conv.Turns {
		if _, err := executor.ExecContext(ctx, insertTurn,
			turn.ID,
			conv.ID,
			i,
			turn.Question,
			turn.Answer,
			turn.DiagramCode,
			formatTime(turn.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting turn: %w", err)
		}
	}

	r.logger.Debug("saved conversation", "id", conv.ID, "turns", len(conv.Turns))
	return nil
}

// ListByOwner returns active conversations, newest first
func (r *ConversationRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	query := `
		SELECT id, owner_id, name, structure_kind, structure, created_at, updated_at
		FROM conversations
		WHERE owner_id = ? AND is_deleted = 0
		ORDER BY created_at DESC
	`

	executor := getExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}

	conversations := []models.Conversation{}
	var ids []string
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		conversations = append(conversations, *conv)
		ids = append(ids, conv.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	// Release the connection before the turn query
	rows.Close()

	if len(ids) == 0 {
		return conversations, nil
	}

	turns, err := loadTurns(ctx, executor, ids)
	if err != nil {
		return nil, err
	}
	for i := range conversations {
		conversations[i].Turns = turns[conversations[i].ID]
		if conversations[i].Turns == nil {
			conversations[i].Turns = []models.Turn{}
		}
	}

	return conversations, nil
}

// SoftDelete marks a conversation deleted
func (r *ConversationRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	query := `
		UPDATE conversations
		SET is_deleted = 1, deleted_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND is_deleted = 0
	`

	now := formatTime(time.Now())
	res, err := getExecutor(ctx, r.db).ExecContext(ctx, query, now, now, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// loadTurns returns turns grouped by conversation id, oldest first
func loadTurns(ctx context.Context, executor DBTX, conversationIDs []string) (map[string][]models.Turn, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(conversationIDs)), ",")
	query := `
		SELECT id, conversation_id, question, answer, diagram_code, created_at
		FROM turns
		WHERE conversation_id IN (` + placeholders + `)
		ORDER BY conversation_id, seq, created_at
	`

	args := make([]any, len(conversationIDs))
	for i, id := range conversationIDs {
		args[i] = id
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]models.Turn, len(conversationIDs))
	for rows.Next() {
		var (
			turn           models.Turn
			conversationID string
			createdAt      string
		)
		if err := rows.Scan(
			&turn.ID,
			&conversationID,
			&turn.Question,
			&turn.Answer,
			&turn.DiagramCode,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		if turn.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing turn created_at: %w", err)
		}
		grouped[conversationID] = append(grouped[conversationID], turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	return grouped, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanConversation reads one conversation row without its turns
func scanConversation(row rowScanner) (*models.Conversation, error) {
	var (
		conv                 models.Conversation
		kind                 string
		structure            sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&conv.ID,
		&conv.OwnerID,
		&conv.Name,
		&kind,
		&structure,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	var data []byte
	if structure.Valid {
		data = []byte(structure.String)
	}
	if conv.Structure, err = formal.Decode(formal.StructureKind(kind), data); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conv.ID, err)
	}

	return &conv, nil
}
