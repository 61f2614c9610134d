package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/xiaot623/gogo/tutor/internal/adapter/cms"
	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/quiz"
)

// ProcessMessage handles one chat turn: admit, classify, route, persist, respond.
func (s *Service) ProcessMessage(ctx context.Context, userID string, req domain.ProcessMessageRequest) (*domain.ProcessMessageResponse, error) {
	if err := s.admit(ctx, admissionInput{
		checkMessage: true,
		message:      req.Message,
		numQuestions: req.NumQuestions,
		difficulty:   req.Difficulty,
	}); err != nil {
		return nil, err
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	unlock := s.locks.Lock(conversationID)
	defer unlock()

	conv, err := s.ensureConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	tp := s.resolveTopic(ctx, req.TopicIDs, req.Topic)

	history, err := s.store.History(ctx, conversationID, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	in := s.classifier.ClassifyTurn(ctx, req.Message, tp.Name, history)
	s.log.Info("turn classified", "conversation_id", conversationID, "intent", in)

	if err := s.appendUserMessage(ctx, conversationID, req.Message); err != nil {
		return nil, err
	}

	resp := &domain.ProcessMessageResponse{
		ConversationID: conversationID,
		Intent:         in,
		Topic:          tp.Name,
	}

	switch {
	case in.IsQuestion():
		err = s.handleQuestionTurn(ctx, conv, req, tp, in, resp)
	case in == domain.IntentOffTopic:
		reply := s.completer.Complete(ctx, s.catalog.OffTopicMessages(tp.Name, req.Message))
		err = s.respondText(ctx, conversationID, reply.Text, resp)
	default:
		reply := s.completer.Complete(ctx, s.catalog.GeneralChatMessages(tp.Name, tp.Prompt, history, req.Message))
		err = s.respondText(ctx, conversationID, reply.Text, resp)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) handleQuestionTurn(ctx context.Context, conv *domain.Conversation, req domain.ProcessMessageRequest, tp cms.Topic, in domain.Intent, resp *domain.ProcessMessageResponse) error {
	count := numQuestionsOrDefault(req.NumQuestions)
	difficulty := effectiveDifficulty(req.Difficulty, &conv.State)
	subject := s.extractor.Extract(ctx, req.Message, tp.Name)

	var systemPrompt string
	if tp.Prompt != "" {
		systemPrompt = s.catalog.QuestionSystem(tp.Name, tp.Prompt)
	}

	result := s.generator.Generate(ctx, quiz.Request{
		Topic:        subject,
		Count:        count,
		Difficulty:   difficulty,
		Types:        in.QuestionTypes(),
		SystemPrompt: systemPrompt,
	})

	resp.Topic = subject
	resp.Difficulty = difficulty
	resp.Requested = count
	resp.Delivered = len(result.Questions)

	if len(result.Questions) == 0 {
		text := fmt.Sprintf("Sorry, I couldn't create questions about %s right now. Please try again in a moment.", subject)
		return s.respondText(ctx, conv.ConversationID, text, resp)
	}

	text := questionIntro(subject, count, len(result.Questions))
	msg, err := s.appendAIMessage(ctx, conv.ConversationID, text, domain.ResponseTypeQuestion, &domain.MessagePayload{
		Text:      text,
		Questions: result.Questions,
	})
	if err != nil {
		return err
	}
	if err := s.store.UpdateState(ctx, conv.ConversationID, domain.StatePatch{CurrentTopic: &subject}); err != nil {
		return fmt.Errorf("failed to update state: %w", err)
	}

	resp.MessageID = msg.MessageID
	resp.Type = domain.ResponseTypeQuestion
	resp.Message = text
	resp.Questions = result.Questions
	return nil
}

func (s *Service) respondText(ctx context.Context, conversationID, text string, resp *domain.ProcessMessageResponse) error {
	msg, err := s.appendAIMessage(ctx, conversationID, text, domain.ResponseTypeText, &domain.MessagePayload{Text: text})
	if err != nil {
		return err
	}
	resp.MessageID = msg.MessageID
	resp.Type = domain.ResponseTypeText
	resp.Message = text
	return nil
}

func questionIntro(subject string, requested, delivered int) string {
	if delivered < requested {
		return fmt.Sprintf("I could only put together %d of the %d questions you asked for about %s:", delivered, requested, subject)
	}
	if delivered == 1 {
		return fmt.Sprintf("Here is a question about %s:", subject)
	}
	return fmt.Sprintf("Here are %d questions about %s:", delivered, subject)
}
