// Package repository persists conversations, their message logs and learning state.
package repository

import (
	"context"

	"github.com/xiaot623/gogo/tutor/internal/domain"
)

// Store defines the interface for conversation storage.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, bool, error)
	GetConversation(ctx context.Context, conversationID string) (*domain.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)

	// Messages
	AppendMessage(ctx context.Context, msg *domain.Message) error
	History(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)

	// State
	GetState(ctx context.Context, conversationID string) (*domain.State, error)
	UpdateState(ctx context.Context, conversationID string, patch domain.StatePatch) error
	RecordAnswerResult(ctx context.Context, conversationID string, result domain.AnswerResult) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
