package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/tutor/internal/domain"
)

// CreateConversation creates the conversation, or returns the existing one with the same id.
func (s *Service) CreateConversation(ctx context.Context, userID string, req domain.CreateConversationRequest) (*domain.Conversation, bool, error) {
	conv := &domain.Conversation{
		ConversationID: strings.TrimSpace(req.ConversationID),
		UserID:         userID,
		Title:          req.Title,
		Description:    req.Description,
	}
	if conv.ConversationID == "" {
		conv.ConversationID = uuid.New().String()
	}
	if conv.Title == "" {
		conv.Title = domain.DefaultConversationTitle
	}
	if conv.Description == "" {
		conv.Description = domain.DefaultConversationDesc
	}

	stored, created, err := s.store.CreateConversation(ctx, conv)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create conversation: %w", err)
	}
	if stored.UserID != userID {
		return nil, false, domain.ErrForbidden
	}
	if created {
		s.log.Info("conversation created", "conversation_id", stored.ConversationID, "user_id", userID)
	}
	return stored, created, nil
}

// GetOrCreateConversation returns the conversation and its recent history, creating it if needed.
func (s *Service) GetOrCreateConversation(ctx context.Context, userID string, req domain.CreateConversationRequest, limit int) (*domain.ConversationWithHistory, error) {
	conv, created, err := s.CreateConversation(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.History(ctx, conv.ConversationID, historyLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return &domain.ConversationWithHistory{Conversation: conv, Messages: messages, Created: created}, nil
}

// GetConversation returns an owned conversation with up to limit recent messages.
func (s *Service) GetConversation(ctx context.Context, userID, conversationID string, limit int) (*domain.ConversationWithHistory, error) {
	conv, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.History(ctx, conversationID, historyLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	return &domain.ConversationWithHistory{Conversation: conv, Messages: messages}, nil
}

func (s *Service) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

func (s *Service) GetState(ctx context.Context, userID, conversationID string) (*domain.State, error) {
	conv, err := s.ownedConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return &conv.State, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) ownedConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return conv, nil
}

// ensureConversation is the implicit create used by turns and question requests.
func (s *Service) ensureConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	conv, _, err := s.CreateConversation(ctx, userID, domain.CreateConversationRequest{ConversationID: conversationID})
	return conv, err
}

func (s *Service) appendAIMessage(ctx context.Context, conversationID, content string, typ domain.ResponseType, payload *domain.MessagePayload) (*domain.Message, error) {
	msg := &domain.Message{
		MessageID:      uuid.New().String(),
		ConversationID: conversationID,
		Sender:         domain.SenderAI,
		Content:        content,
		Timestamp:      s.now(),
		Type:           &typ,
		Payload:        payload,
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to save ai message: %w", err)
	}
	return msg, nil
}

func (s *Service) appendUserMessage(ctx context.Context, conversationID, content string) error {
	msg := &domain.Message{
		MessageID:      uuid.New().String(),
		ConversationID: conversationID,
		Sender:         domain.SenderUser,
		Content:        content,
		Timestamp:      s.now(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return fmt.Errorf("failed to save user message: %w", err)
	}
	return nil
}
