// Package domain defines the core domain models for the tutor.
package domain

import "strings"

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "User"
	SenderAI   Sender = "AI"
)

// ResponseType classifies an AI message.
type ResponseType string

const (
	ResponseTypeText        ResponseType = "text"
	ResponseTypeQuestion    ResponseType = "question"
	ResponseTypeCorrection  ResponseType = "correction"
	ResponseTypeHint        ResponseType = "hint"
	ResponseTypeExplanation ResponseType = "explanation"
	ResponseTypeFeedback    ResponseType = "feedback"
)

// QuestionType is the discriminator of the Question union.
type QuestionType string

const (
	QuestionTypeMultipleChoice  QuestionType = "MultipleChoice"
	QuestionTypeFillInTheBlanks QuestionType = "FillInTheBlanks"
)

// ParseQuestionType accepts the canonical names plus the snake_case forms used in intent labels.
func ParseQuestionType(s string) (QuestionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "multiplechoice", "multiple_choice", "mcq":
		return QuestionTypeMultipleChoice, true
	case "fillintheblanks", "fill_in_the_blanks", "fill_in_the_blank", "fib":
		return QuestionTypeFillInTheBlanks, true
	}
	return "", false
}

// Difficulty is the learner's level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty coerces a free-form string into a Difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case DifficultyEasy:
		return DifficultyEasy, true
	case DifficultyMedium:
		return DifficultyMedium, true
	case DifficultyHard:
		return DifficultyHard, true
	}
	return "", false
}

// Intent is the classifier's label for a user turn.
type Intent string

const (
	IntentMultipleChoice  Intent = "question_generation:multiple_choice"
	IntentFillInTheBlanks Intent = "question_generation:fill_in_the_blanks"
	IntentGeneralChat     Intent = "general_chat"
	IntentOffTopic        Intent = "off_topic"
)

// ParseIntent matches a label exactly. A bare "question_generation" routes to fill-in-the-blanks.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(s) {
	case IntentMultipleChoice, IntentFillInTheBlanks, IntentGeneralChat, IntentOffTopic:
		return Intent(s), true
	case "question_generation":
		return IntentFillInTheBlanks, true
	}
	return "", false
}

// IsQuestion reports whether the intent asks for practice questions.
func (i Intent) IsQuestion() bool {
	return i == IntentMultipleChoice || i == IntentFillInTheBlanks
}

// QuestionTypes returns the question types an intent asks for.
func (i Intent) QuestionTypes() []QuestionType {
	switch i {
	case IntentMultipleChoice:
		return []QuestionType{QuestionTypeMultipleChoice}
	case IntentFillInTheBlanks:
		return []QuestionType{QuestionTypeFillInTheBlanks}
	}
	return nil
}
