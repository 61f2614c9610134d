package domain

import "time"

// Conversation is a chat thread owned by one user, with its learning state embedded.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	State          State     `json:"state"`
}

// State tracks the learner's progress inside a conversation.
type State struct {
	CurrentTopic     *string        `json:"current_topic"`
	DifficultyLevel  Difficulty     `json:"difficulty_level"`
	CorrectAnswers   int            `json:"correct_answers"`
	IncorrectAnswers int            `json:"incorrect_answers"`
	QuestionHistory  []AnswerResult `json:"question_history"`
}

// NewState returns the state of a freshly created conversation.
func NewState() State {
	return State{
		DifficultyLevel: DifficultyMedium,
		QuestionHistory: []AnswerResult{},
	}
}

// StatePatch carries a field-level update; nil fields are left alone.
type StatePatch struct {
	CurrentTopic    *string
	DifficultyLevel *Difficulty
}

// AnswerResult records one graded answer.
type AnswerResult struct {
	QuestionID string     `json:"question_id"`
	Timestamp  time.Time  `json:"timestamp"`
	WasCorrect bool       `json:"was_correct"`
	UserAnswer string     `json:"user_answer"`
	Difficulty Difficulty `json:"difficulty"`
}

// Message is one entry of a conversation's append-only log.
type Message struct {
	MessageID      string          `json:"message_id"`
	ConversationID string          `json:"conversation_id"`
	Seq            int64           `json:"seq"`
	Sender         Sender          `json:"sender"`
	Content        string          `json:"content"`
	Timestamp      time.Time       `json:"timestamp"`
	Type           *ResponseType   `json:"type,omitempty"`
	Payload        *MessagePayload `json:"payload,omitempty"`
}

// MessagePayload holds the structured part of an AI message.
type MessagePayload struct {
	Text      string     `json:"text,omitempty"`
	Questions []Question `json:"questions,omitempty"`
}
