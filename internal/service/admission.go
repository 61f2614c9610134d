package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/tutor/internal/adapter/cms"
	"github.com/xiaot623/gogo/tutor/internal/domain"
)

type admissionInput struct {
	checkMessage  bool
	message       string
	numQuestions  int
	difficulty    string
	questionTypes []string
}

// admit runs the request through the policy engine. Violations are returned as ErrInvalidRequest.
func (s *Service) admit(ctx context.Context, in admissionInput) error {
	if s.policyEngine == nil {
		return nil
	}

	types := make([]interface{}, 0, len(in.questionTypes))
	for _, raw := range in.questionTypes {
		if qt, ok := domain.ParseQuestionType(raw); ok {
			types = append(types, string(qt))
		} else {
			types = append(types, raw)
		}
	}
	difficulty := in.difficulty
	if d, ok := domain.ParseDifficulty(difficulty); ok {
		difficulty = string(d)
	}

	decision, err := s.policyEngine.Evaluate(ctx, map[string]interface{}{
		"check_message":  in.checkMessage,
		"message":        in.message,
		"num_questions":  in.numQuestions,
		"max_questions":  s.config.MaxQuestions,
		"difficulty":     difficulty,
		"question_types": types,
	})
	if err != nil {
		return fmt.Errorf("failed to evaluate admission policy: %w", err)
	}
	if !decision.Allowed {
		return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, strings.Join(decision.Reasons, "; "))
	}
	return nil
}

// resolveTopic prefers the CMS topic, then the topic named in the request, then the default.
func (s *Service) resolveTopic(ctx context.Context, topicIDs, requested string) cms.Topic {
	t := s.cmsClient.Lookup(ctx, topicIDs)
	if !t.Found {
		if requested = strings.TrimSpace(requested); requested != "" {
			t.Name = requested
		}
	}
	return t
}

// effectiveDifficulty is the requested level if it parses, else the conversation's adaptive level.
func effectiveDifficulty(requested string, state *domain.State) domain.Difficulty {
	if d, ok := domain.ParseDifficulty(requested); ok {
		return d
	}
	if state != nil && state.DifficultyLevel != "" {
		return state.DifficultyLevel
	}
	return domain.DifficultyMedium
}

// parseQuestionTypes keeps the first occurrence of each type, so aliases of one type stay a single type.
func parseQuestionTypes(raw []string) []domain.QuestionType {
	var types []domain.QuestionType
	seen := make(map[domain.QuestionType]bool, len(raw))
	for _, r := range raw {
		if qt, ok := domain.ParseQuestionType(r); ok && !seen[qt] {
			seen[qt] = true
			types = append(types, qt)
		}
	}
	return types
}

func numQuestionsOrDefault(n int) int {
	if n <= 0 {
		return domain.DefaultNumQuestions
	}
	return n
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return domain.DefaultHistoryLimit
	}
	if limit > domain.MaxHistoryLimit {
		return domain.MaxHistoryLimit
	}
	return limit
}
