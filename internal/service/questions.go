package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/quiz"
)

// GenerateQuestions produces questions outside the chat flow. When a conversation id is
// given the questions are also posted to that conversation.
func (s *Service) GenerateQuestions(ctx context.Context, userID string, req domain.GenerateQuestionsRequest) (*domain.GenerateQuestionsResponse, error) {
	if err := s.admit(ctx, admissionInput{
		numQuestions:  req.NumQuestions,
		difficulty:    req.Difficulty,
		questionTypes: req.QuestionTypes,
	}); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(req.Topic)
	if subject == "" {
		subject = domain.DefaultTopicName
	}
	count := numQuestionsOrDefault(req.NumQuestions)

	var conv *domain.Conversation
	if id := strings.TrimSpace(req.ConversationID); id != "" {
		unlock := s.locks.Lock(id)
		defer unlock()
		var err error
		if conv, err = s.ensureConversation(ctx, userID, id); err != nil {
			return nil, err
		}
	}

	var state *domain.State
	if conv != nil {
		state = &conv.State
	}
	difficulty := effectiveDifficulty(req.Difficulty, state)

	result := s.generator.Generate(ctx, quiz.Request{
		Topic:      subject,
		Count:      count,
		Difficulty: difficulty,
		Types:      parseQuestionTypes(req.QuestionTypes),
	})

	if conv != nil && len(result.Questions) > 0 {
		text := questionIntro(subject, count, len(result.Questions))
		if _, err := s.appendAIMessage(ctx, conv.ConversationID, text, domain.ResponseTypeQuestion, &domain.MessagePayload{
			Text:      text,
			Questions: result.Questions,
		}); err != nil {
			return nil, err
		}
		if err := s.store.UpdateState(ctx, conv.ConversationID, domain.StatePatch{CurrentTopic: &subject}); err != nil {
			return nil, fmt.Errorf("failed to update state: %w", err)
		}
	}

	return &domain.GenerateQuestionsResponse{
		Questions:  result.Questions,
		Topic:      subject,
		Difficulty: difficulty,
		Requested:  result.Requested,
		Delivered:  len(result.Questions),
		Shortfall:  result.Shortfall,
	}, nil
}
