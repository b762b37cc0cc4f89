package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/models/formal"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "bot.db")
	db, err := Open(path, discardLogger())
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func newConversation(owner string, created time.Time) *models.Conversation {
	return &models.Conversation{
		ID:      uuid.NewString(),
		OwnerID: owner,
		Structure: &formal.Automaton{
			Type:         formal.NFA,
			States:       []string{"q0", "q1"},
			Alphabet:     []string{"a", "b"},
			Transitions:  []formal.Transition{{From: "q0", Symbol: "a", To: "q1"}, {From: "q0", Symbol: "a", To: "q0"}},
			InitialState: "q0",
			AcceptStates: []string{"q1"},
		},
		Turns:     []models.Turn{},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestConversationRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db, discardLogger())
	ctx := context.Background()

	now := time.Date(2024, 3, 9, 14, 5, 7, 123000000, time.UTC)
	conv := newConversation("owner-1", now)
	conv.Turns = append(conv.Turns, models.Turn{ID: uuid.NewString(), Question: "q1", Answer: "a1", CreatedAt: now})
	require.NoError(t, repo.Save(ctx, conv))

	conv.Name = "renamed"
	conv.Turns = append(conv.Turns, models.Turn{ID: uuid.NewString(), Question: "q2", Answer: "a2", DiagramCode: "digraph G {}", CreatedAt: now})
	require.NoError(t, repo.Save(ctx, conv))

	got, err := repo.FindByID(ctx, conv.ID, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.True(t, got.CreatedAt.Equal(now))
	require.Len(t, got.Turns, 2)
	assert.Equal(t, "q1", got.Turns[0].Question)
	assert.Equal(t, "digraph G {}", got.Turns[1].DiagramCode)

	automaton, ok := got.Structure.(*formal.Automaton)
	require.True(t, ok)
	assert.Equal(t, conv.Structure, automaton)

	_, err = repo.FindByID(ctx, conv.ID, "owner-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConversationRepository_SoftDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db, discardLogger())
	ctx := context.Background()

	conv := newConversation("owner-1", time.Now())
	require.NoError(t, repo.Save(ctx, conv))

	assert.ErrorIs(t, repo.SoftDelete(ctx, conv.ID, "owner-2"), domain.ErrNotFound)
	require.NoError(t, repo.SoftDelete(ctx, conv.ID, "owner-1"))
	assert.ErrorIs(t, repo.SoftDelete(ctx, conv.ID, "owner-1"), domain.ErrNotFound)

	_, err := repo.FindByID(ctx, conv.ID, "owner-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// A deleted conversation cannot be resurrected by saving it again
	conv.Turns = append(conv.Turns, models.Turn{ID: uuid.NewString(), Question: "q", Answer: "a", CreatedAt: time.Now()})
	assert.ErrorIs(t, repo.Save(ctx, conv), domain.ErrNotFound)

	list, err := repo.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConversationRepository_ListNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db, discardLogger())
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newConversation("owner-1", base)
	newer := newConversation("owner-1", base.Add(1500*time.Millisecond))
	newer.Structure = nil
	newer.Turns = []models.Turn{{ID: uuid.NewString(), Question: "q", Answer: "a", CreatedAt: base}}
	other := newConversation("owner-2", base)

	for _, c := range []*models.Conversation{older, newer, other} {
		require.NoError(t, repo.Save(ctx, c))
	}

	list, err := repo.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Nil(t, list[0].Structure)
	assert.Len(t, list[0].Turns, 1)
	assert.Equal(t, older.ID, list[1].ID)
	assert.NotNil(t, list[1].Turns)
}

func TestTransactionManager_RollsBack(t *testing.T) {
	db := newTestDB(t)
	repo := NewConversationRepository(db, discardLogger())
	tx := NewTransactionManager(db, discardLogger())
	ctx := context.Background()

	conv := newConversation("owner-1", time.Now())
	boom := errors.New("boom")

	err := tx.ExecTx(ctx, func(txCtx context.Context) error {
		if err := repo.Save(txCtx, conv); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = repo.FindByID(ctx, conv.ID, "owner-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, tx.ExecTx(ctx, func(txCtx context.Context) error {
		return repo.Save(txCtx, conv)
	}))
	_, err = repo.FindByID(ctx, conv.ID, "owner-1")
	assert.NoError(t, err)
}

func TestUserRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{ID: uuid.NewString(), Username: "alice", PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, user))

	err := repo.Create(ctx, &models.User{ID: uuid.NewString(), Username: "alice", PasswordHash: "x", CreatedAt: time.Now()})
	assert.ErrorIs(t, err, domain.ErrConflict)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byName.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash", byID.PasswordHash)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClearData_KeepsUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewConversationRepository(db, discardLogger())
	users := NewUserRepository(db)

	require.NoError(t, users.Create(ctx, &models.User{ID: uuid.NewString(), Username: "alice", PasswordHash: "x", CreatedAt: time.Now()}))
	conv := newConversation("owner-1", time.Now())
	conv.Turns = append(conv.Turns, models.Turn{ID: uuid.NewString(), Question: "q", Answer: "a", CreatedAt: time.Now()})
	require.NoError(t, repo.Save(ctx, conv))

	require.NoError(t, ClearData(ctx, db))

	list, err := repo.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = users.GetByUsername(ctx, "alice")
	assert.NoError(t, err)
}
