package domain

import (
	"fmt"
	"strings"
)

// BlankSeparator marks the gap in a fill-in-the-blanks sentence.
const BlankSeparator = "____"

// MultipleChoiceOptions is the fixed number of options of a multiple-choice question.
const MultipleChoiceOptions = 4

// Question is a practice item. Type selects which of the variant fields are meaningful.
type Question struct {
	ID                  string       `json:"id"`
	Type                QuestionType `json:"type"`
	QuestionText        string       `json:"questionText"`
	QuestionDescription string       `json:"questionDescription"`
	CorrectAnswers      []string     `json:"correct_answers"`
	Difficulty          Difficulty   `json:"difficulty"`
	Hint                string       `json:"hint,omitempty"`

	// MultipleChoice
	Options []string `json:"options,omitempty"`

	// FillInTheBlanks
	QuestionSentence string `json:"questionSentence,omitempty"`
	BlankSeparator   string `json:"blankSeparator,omitempty"`
	NumberOfBlanks   int    `json:"numberOfBlanks,omitempty"`
}

// DedupKey is the text two questions are compared by for uniqueness.
func (q *Question) DedupKey() string {
	if q.Type == QuestionTypeFillInTheBlanks {
		return strings.TrimSpace(q.QuestionSentence)
	}
	return strings.TrimSpace(q.QuestionText)
}

// Validate checks that the question is well formed for its type.
func (q *Question) Validate() error {
	if strings.TrimSpace(q.QuestionText) == "" {
		return fmt.Errorf("questionText is empty")
	}
	if len(q.CorrectAnswers) == 0 || strings.TrimSpace(q.CorrectAnswers[0]) == "" {
		return fmt.Errorf("correct_answers is empty")
	}
	switch q.Type {
	case QuestionTypeMultipleChoice:
		if len(q.Options) != MultipleChoiceOptions {
			return fmt.Errorf("expected %d options, got %d", MultipleChoiceOptions, len(q.Options))
		}
		if !containsString(q.Options, q.CorrectAnswers[0]) {
			return fmt.Errorf("options do not contain the correct answer %q", q.CorrectAnswers[0])
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, o := range q.Options {
			key := normalizeAnswer(o)
			if key == "" {
				return fmt.Errorf("options contain an empty entry")
			}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("options repeat %q", o)
			}
			seen[key] = struct{}{}
		}
	case QuestionTypeFillInTheBlanks:
		if !strings.Contains(q.QuestionSentence, BlankSeparator) {
			return fmt.Errorf("questionSentence has no %q blank", BlankSeparator)
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}

// Accepts reports whether answer matches any accepted answer, ignoring case and surrounding space.
func (q *Question) Accepts(answer string) bool {
	a := normalizeAnswer(answer)
	if a == "" {
		return false
	}
	for _, c := range q.CorrectAnswers {
		if normalizeAnswer(c) == a {
			return true
		}
	}
	return false
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
