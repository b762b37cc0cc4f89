package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"automatonbot/internal/config"
	"automatonbot/internal/domain"
	"automatonbot/internal/domain/models"
	"automatonbot/internal/domain/repositories"
	"automatonbot/internal/domain/services"
	llmSvc "automatonbot/internal/domain/services/llm"
	"automatonbot/internal/service/formal"
	"automatonbot/internal/service/llm"
)

type service struct {
	repo      repositories.ConversationRepository
	txManager repositories.TransactionManager
	gateway   llmSvc.Gateway
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates the conversation service
func NewService(
	repo repositories.ConversationRepository,
	txManager repositories.TransactionManager,
	gateway llmSvc.Gateway,
	logger *slog.Logger,
) services.ConversationService {
	return &service{
		repo:      repo,
		txManager: txManager,
		gateway:   gateway,
		logger:    logger,
		now:       time.Now,
	}
}

// Process answers one question and records the exchange.
// Nothing is written unless the model call succeeds.
func (s *service) Process(ctx context.Context, req *services.ProcessRequest) (*services.ProcessResult, error) {
	if err := s.validateProcessRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var description string
	if req.Structure != nil {
		desc, err := formal.Validate(req.Structure)
		if err != nil {
			return nil, err
		}
		description = desc
	}

	conv, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	// Follow-ups without a structure still get the one the conversation started with
	promptContext := description
	if promptContext == "" && conv.Structure != nil {
		if desc, err := formal.Validate(conv.Structure); err == nil {
			promptContext = desc
		} else {
			s.logger.Warn("stored structure no longer validates",
				"conversation_id", conv.ID,
				"error", err,
			)
		}
	}

	prompt := llm.ComposePrompt(promptContext, conv.Turns, req.Question)

	s.logger.Debug("sending prompt",
		"conversation_id", conv.ID,
		"provider", s.gateway.Name(),
		"history_turns", len(conv.Turns),
		"diagram_requested", llm.IsDiagramRequest(req.Question),
	)

	raw, err := s.gateway.Send(ctx, prompt)
	if err != nil {
		s.logger.Error("llm request failed",
			"conversation_id", conv.ID,
			"provider", s.gateway.Name(),
			"error", err,
		)
		return nil, err
	}

	extracted := llm.ExtractResponse(raw)

	now := s.now()
	conv.Turns = append(conv.Turns, models.Turn{
		ID:          uuid.NewString(),
		Question:    req.Question,
		Answer:      extracted.Answer,
		DiagramCode: extracted.DiagramCode,
		CreatedAt:   now,
	})
	conv.UpdatedAt = now

	if err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.repo.Save(txCtx, conv)
	}); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	s.logger.Info("question answered",
		"conversation_id", conv.ID,
		"owner_id", conv.OwnerID,
		"turns", len(conv.Turns),
		"has_diagram", extracted.HasDiagram(),
	)

	return &services.ProcessResult{
		Message:        formatMessage(description, req.Question, extracted),
		ConversationID: conv.ID,
	}, nil
}

func (s *service) validateProcessRequest(req *services.ProcessRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Question,
			validation.Required.Error("question is required"),
			validation.By(notBlank),
			validation.RuneLength(0, config.MaxQuestionLength),
		),
	)
}

// resolve loads the conversation being continued or starts a new one in memory
func (s *service) resolve(ctx context.Context, req *services.ProcessRequest) (*models.Conversation, error) {
	if req.ConversationID == "" {
		now := s.now()
		return &models.Conversation{
			ID:        uuid.NewString(),
			OwnerID:   req.OwnerID,
			Structure: req.Structure,
			Turns:     []models.Turn{},
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}

	return s.find(ctx, req.ConversationID, req.OwnerID)
}

// find treats ids that are not UUIDs as unknown
func (s *service) find(ctx context.Context, id, ownerID string) (*models.Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
	}
	return s.repo.FindByID(ctx, id, ownerID)
}

// ListConversations returns the owner's conversations, newest first
func (s *service) ListConversations(ctx context.Context, ownerID string) ([]models.Conversation, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", domain.ErrValidation)
	}
	return s.repo.ListByOwner(ctx, ownerID)
}

// GetConversation retrieves one conversation with its turns
func (s *service) GetConversation(ctx context.Context, id, ownerID string) (*models.Conversation, error) {
	return s.find(ctx, id, ownerID)
}

// RenameConversation sets the display name
func (s *service) RenameConversation(ctx context.Context, id, ownerID, name string) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name,
		validation.Required.Error("name is required"),
		validation.RuneLength(1, config.MaxConversationNameLength),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	conv, err := s.find(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	conv.Name = name
	conv.UpdatedAt = s.now()

	if err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.repo.Save(txCtx, conv)
	}); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	s.logger.Info("conversation renamed",
		"conversation_id", conv.ID,
		"name", name,
	)
	return conv, nil
}

// DeleteConversation soft-deletes a conversation
func (s *service) DeleteConversation(ctx context.Context, id, ownerID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: conversation %s", domain.ErrNotFound, id)
	}

	if err := s.repo.SoftDelete(ctx, id, ownerID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("failed to delete conversation", "conversation_id", id, "error", err)
		}
		return err
	}

	s.logger.Info("conversation deleted", "conversation_id", id, "owner_id", ownerID)
	return nil
}

func notBlank(value interface{}) error {
	if s, ok := value.(string); ok && s != "" && strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

// formatMessage builds the reply shown to the user
func formatMessage(description, question string, extracted llm.Extraction) string {
	var b strings.Builder
	if description != "" {
		b.WriteString(description)
		fmt.Fprintf(&b, "\nLLM Answer to your question \"%s\":\n", question)
	} else {
		fmt.Fprintf(&b, "Answer to your question \"%s\":\n", question)
	}
	b.WriteString(extracted.Answer)
	if extracted.HasDiagram() {
		b.WriteString("\n\nGraphviz-DOT Code:\n")
		b.WriteString(extracted.DiagramCode)
	}
	return b.String()
}
