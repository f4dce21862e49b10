package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vbonduro/farmguide/internal/domain"
	"github.com/vbonduro/farmguide/internal/prompts"
)

var ErrEmptyMessage = errors.New("message is empty")

// messageRepository is the subset of store.MessageStore that ChatService requires.
type messageRepository interface {
	Add(ctx context.Context, sessionID string, role domain.Role, content string, fc domain.FarmingContext) (*domain.Message, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// assistant is the subset of llm.Assistant the services require.
type assistant interface {
	Query(ctx context.Context, message string, fc domain.FarmingContext) string
	Prompts() *prompts.Catalog
}

type ChatService struct {
	messages  messageRepository
	assistant assistant
	logger    *slog.Logger
}

func NewChatService(messages messageRepository, assistant assistant, logger *slog.Logger) *ChatService {
	return &ChatService{messages: messages, assistant: assistant, logger: logger}
}

// Exchange is one question and the reply it produced.
type Exchange struct {
	Question *domain.Message
	Answer   *domain.Message
}

// Send records the user's message, asks the assistant and records the reply.
func (s *ChatService) Send(ctx context.Context, sessionID, content string, fc domain.FarmingContext) (*Exchange, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	question, err := s.messages.Add(ctx, sessionID, domain.RoleUser, content, fc)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	reply := s.assistant.Query(ctx, content, fc)

	answer, err := s.messages.Add(ctx, sessionID, domain.RoleAssistant, reply, fc)
	if err != nil {
		return nil, fmt.Errorf("failed to store reply: %w", err)
	}

	s.logger.Info("chat exchange", "session_id", sessionID, "context", fc, "reply_chars", len([]rune(reply)))
	return &Exchange{Question: question, Answer: answer}, nil
}

// Ask answers a one-off question without recording it.
func (s *ChatService) Ask(ctx context.Context, content string, fc domain.FarmingContext) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	return s.assistant.Query(ctx, content, fc), nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	return s.messages.ListBySession(ctx, sessionID)
}

func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	if err := s.messages.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	s.logger.Info("chat cleared", "session_id", sessionID)
	return nil
}
