package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/tutor/internal/domain"
)

// EvaluateAnswer grades an answer to a question previously posted in the conversation,
// records the result (which may move the difficulty level) and posts feedback.
func (s *Service) EvaluateAnswer(ctx context.Context, userID string, req domain.EvaluateAnswerRequest) (*domain.EvaluateAnswerResponse, error) {
	if strings.TrimSpace(req.ConversationID) == "" || strings.TrimSpace(req.QuestionID) == "" {
		return nil, fmt.Errorf("%w: conversation_id and question_id are required", domain.ErrInvalidRequest)
	}

	unlock := s.locks.Lock(req.ConversationID)
	defer unlock()

	if _, err := s.ownedConversation(ctx, userID, req.ConversationID); err != nil {
		return nil, err
	}

	history, err := s.store.History(ctx, req.ConversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	q, ok := findQuestion(history, req.QuestionID)
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}

	correct := q.Accepts(req.Answer)
	explanation := s.explain(ctx, q, req.Answer, correct)

	recorded, err := s.store.RecordAnswerResult(ctx, req.ConversationID, domain.AnswerResult{
		QuestionID: q.ID,
		Timestamp:  s.now(),
		WasCorrect: correct,
		UserAnswer: req.Answer,
		Difficulty: q.Difficulty,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}
	if !recorded {
		return nil, domain.ErrNotFound
	}

	state, err := s.store.GetState(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}

	eval := domain.AnswerEvaluation{
		IsCorrect:     correct,
		CorrectAnswer: q.CorrectAnswers,
		Explanation:   explanation,
	}
	if !correct {
		eval.FollowUpHint = q.Hint
	}

	if _, err := s.appendAIMessage(ctx, req.ConversationID, explanation, domain.ResponseTypeFeedback, &domain.MessagePayload{Text: explanation}); err != nil {
		return nil, err
	}

	s.log.Info("answer evaluated",
		"conversation_id", req.ConversationID,
		"question_id", q.ID,
		"correct", correct,
		"difficulty", state.DifficultyLevel,
	)

	return &domain.EvaluateAnswerResponse{
		QuestionID:      q.ID,
		Evaluation:      eval,
		DifficultyLevel: state.DifficultyLevel,
	}, nil
}

// explain asks the model for feedback on an already decided verdict. A gateway
// fallback is replaced with a plain verdict.
func (s *Service) explain(ctx context.Context, q domain.Question, answer string, correct bool) string {
	res := s.completer.Complete(ctx, s.catalog.EvaluationMessages(q, answer, correct))
	if !res.Fallback && strings.TrimSpace(res.Text) != "" {
		return strings.TrimSpace(res.Text)
	}
	if correct {
		return "Correct, well done!"
	}
	return fmt.Sprintf("Not quite. The correct answer is %q.", q.CorrectAnswers[0])
}

// findQuestion looks for the most recent posted question with the given id.
func findQuestion(history []domain.Message, questionID string) (domain.Question, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		p := history[i].Payload
		if p == nil {
			continue
		}
		for _, q := range p.Questions {
			if q.ID == questionID {
				return q, true
			}
		}
	}
	return domain.Question{}, false
}
