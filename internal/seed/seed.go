// Package seed loads a demo account and sample conversations for local development.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/models/formal"
	"automatonbot/internal/domain/repositories"
	formalSvc "automatonbot/internal/service/formal"
)

// Fixed ids keep reseeding idempotent
const (
	dfaConversationID = "11111111-1111-1111-1111-111111111111"
	cfgConversationID = "22222222-2222-2222-2222-222222222222"
)

// Seeder writes demo data through the repositories, so it works with either driver
type Seeder struct {
	users         repositories.UserRepository
	conversations repositories.ConversationRepository
	txManager     repositories.TransactionManager
	logger        *slog.Logger
	now           func() time.Time
}

// NewSeeder creates a new seeder
func NewSeeder(
	users repositories.UserRepository,
	conversations repositories.ConversationRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{
		users:         users,
		conversations: conversations,
		txManager:     txManager,
		logger:        logger,
		now:           time.Now,
	}
}

// EnsureUser returns the active user with username, creating it if needed
func (s *Seeder) EnsureUser(ctx context.Context, username, password string) (*models.User, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		s.logger.Info("demo user exists", "username", username, "user_id", existing.ID)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("demo user created", "username", username, "user_id", user.ID)
	return user, nil
}

// SeedConversations stores one automaton and one grammar conversation for ownerID.
// Rerunning keeps existing turns and adds none.
func (s *Seeder) SeedConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	now := s.now()
	samples := []models.Conversation{
		{
			ID:        dfaConversationID,
			OwnerID:   ownerID,
			Name:      "Strings ending in ab",
			Structure: sampleDFA(),
			Turns: []models.Turn{{
				ID:       "11111111-1111-1111-1111-000000000001",
				Question: "What language does this DFA accept?",
				Answer:   "It accepts every string over {a, b} that ends with \"ab\".",
				DiagramCode: "digraph DFA {\n  rankdir=LR;\n  node [shape=doublecircle]; q2;\n  node [shape=circle];\n" +
					"  q0 -> q1 [label=\"a\"];\n  q0 -> q0 [label=\"b\"];\n  q1 -> q1 [label=\"a\"];\n" +
					"  q1 -> q2 [label=\"b\"];\n  q2 -> q1 [label=\"a\"];\n  q2 -> q0 [label=\"b\"];\n}",
				CreatedAt: now,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:        cfgConversationID,
			OwnerID:   ownerID,
			Name:      "Balanced a^n b^n",
			Structure: sampleCFG(),
			Turns: []models.Turn{{
				ID:        "22222222-2222-2222-2222-000000000001",
				Question:  "Is this grammar ambiguous?",
				Answer:    "No. Every string a^n b^n has exactly one leftmost derivation.",
				CreatedAt: now,
			}},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	for i := range samples {
		conv := &samples[i]
		if _, err := formalSvc.Validate(conv.Structure); err != nil {
			return nil, fmt.Errorf("sample %q: %w", conv.Name, err)
		}

		if err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
			return s.conversations.Save(txCtx, conv)
		}); err != nil {
			return nil, fmt.Errorf("save sample %q: %w", conv.Name, err)
		}

		s.logger.Info("sample conversation seeded",
			"conversation_id", conv.ID,
			"kind", conv.Structure.Kind(),
		)
	}

	return samples, nil
}

func sampleDFA() *formal.Automaton {
	return &formal.Automaton{
		Type:     formal.DFA,
		States:   []string{"q0", "q1", "q2"},
		Alphabet: []string{"a", "b"},
		Transitions: []formal.Transition{
			{From: "q0", Symbol: "a", To: "q1"},
			{From: "q0", Symbol: "b", To: "q0"},
			{From: "q1", Symbol: "a", To: "q1"},
			{From: "q1", Symbol: "b", To: "q2"},
			{From: "q2", Symbol: "a", To: "q1"},
			{From: "q2", Symbol: "b", To: "q0"},
		},
		InitialState: "q0",
		AcceptStates: []string{"q2"},
	}
}

func sampleCFG() *formal.Grammar {
	return &formal.Grammar{
		Variables: []string{"S"},
		Terminals: []string{"a", "b"},
		Productions: formal.Productions{
			{Variable: "S", Bodies: [][]string{{"a", "S", "b"}, {}}},
		},
		StartSymbol: "S",
	}
}
