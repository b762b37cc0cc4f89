package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/models/formal"
	"automatonbot/internal/domain/repositories"
)

// PostgresConversationRepository implements repositories.ConversationRepository
type PostgresConversationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(config *RepositoryConfig) repositories.ConversationRepository {
	return &PostgresConversationRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// FindByID retrieves an active conversation with its turns
func (r *PostgresConversationRepository) FindByID(ctx context.Context, id, ownerID string) (*models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, name, structure_kind, structure, created_at, updated_at
		FROM %s
		WHERE id = $1 AND owner_id = $2 AND NOT is_deleted
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	conv, err := scanConversation(executor.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	turns, err := r.loadTurns(ctx, executor, []string{conv.ID})
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
func (r *PostgresConversationRepository) Save(ctx context.Context, conv *models.Conversation) error {
	kind, structure, err := formal.Encode(conv.Structure)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, owner_id, name, structure_kind, structure, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, updated_at = EXCLUDED.updated_at
		WHERE %[1]s.owner_id = EXCLUDED.owner_id AND NOT %[1]s.is_deleted
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	tag, err := executor.Exec(ctx, query,
		conv.ID,
		conv.OwnerID,
		conv.Name,
		string(kind),
		structure,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Row exists but belongs to someone else or was deleted
		return fmt.Errorf("conversation %s: %w", conv.ID, domain.ErrNotFound)
	}

	if len(conv.Turns) == 0 {
		return nil
	}

	insertTurn := fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, seq, question, answer, diagram_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, r.tables.Turns)

	batch := &pgx.Batch{}
	for i, turn := range conv.Turns {
		batch.Queue(insertTurn, turn.ID, conv.ID, i, turn.Question, turn.Answer, turn.DiagramCode, turn.CreatedAt)
	}

	results := executor.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	for range conv.Turns {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	return nil
}

// ListByOwner returns active conversations, newest first
func (r *PostgresConversationRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, name, structure_kind, structure, created_at, updated_at
		FROM %s
		WHERE owner_id = $1 AND NOT is_deleted
		ORDER BY created_at DESC
	`, r.tables.Conversations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []models.Conversation{}
	var ids []string
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, *conv)
		ids = append(ids, conv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}

	if len(ids) == 0 {
		return conversations, nil
	}

	turns, err := r.loadTurns(ctx, executor, ids)
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
func (r *PostgresConversationRepository) SoftDelete(ctx context.Context, id, ownerID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = TRUE, deleted_at = $3, updated_at = $3
		WHERE id = $1 AND owner_id = $2 AND NOT is_deleted
	`, r.tables.Conversations)

	tag, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id, ownerID, time.Now())
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conversation %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// loadTurns returns turns grouped by conversation id, oldest first
func (r *PostgresConversationRepository) loadTurns(ctx context.Context, executor DBTX, conversationIDs []string) (map[string][]models.Turn, error) {
	query := fmt.Sprintf(`
		SELECT id, conversation_id, question, answer, diagram_code, created_at
		FROM %s
		WHERE conversation_id = ANY($1)
		ORDER BY conversation_id, seq, created_at
	`, r.tables.Turns)

	rows, err := executor.Query(ctx, query, conversationIDs)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]models.Turn, len(conversationIDs))
	for rows.Next() {
		var (
			turn           models.Turn
			conversationID string
		)
		if err := rows.Scan(
			&turn.ID,
			&conversationID,
			&turn.Question,
			&turn.Answer,
			&turn.DiagramCode,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		grouped[conversationID] = append(grouped[conversationID], turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	return grouped, nil
}

// scanConversation reads one conversation row without its turns
func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var (
		conv      models.Conversation
		kind      string
		structure []byte
	)
	if err := row.Scan(
		&conv.ID,
		&conv.OwnerID,
		&conv.Name,
		&kind,
		&structure,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	s, err := formal.Decode(formal.StructureKind(kind), structure)
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w", conv.ID, err)
	}
	conv.Structure = s

	return &conv, nil
}
