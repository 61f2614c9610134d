package domain

// Default values applied at the HTTP boundary.
const (
	DefaultTopicName         = "Portuguese language"
	DefaultConversationTitle = "General Chat"
	DefaultConversationDesc  = "General conversation about Portuguese language"
	DefaultNumQuestions      = 2
	DefaultHistoryLimit      = 50
	MaxHistoryLimit          = 100
)

// ProcessMessageRequest is one user turn.
type ProcessMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
	Topic          string `json:"topic,omitempty"`
	TopicIDs       string `json:"topic_ids,omitempty"`
	Difficulty     string `json:"difficulty,omitempty"`
	NumQuestions   int    `json:"num_questions,omitempty"`
}

// ProcessMessageResponse is the dispatcher's answer to a turn.
type ProcessMessageResponse struct {
	ConversationID string       `json:"conversation_id"`
	MessageID      string       `json:"message_id"`
	Type           ResponseType `json:"type"`
	Intent         Intent       `json:"intent"`
	Message        string       `json:"message"`
	Topic          string       `json:"topic,omitempty"`
	Difficulty     Difficulty   `json:"difficulty,omitempty"`
	Questions      []Question   `json:"questions,omitempty"`
	Requested      int          `json:"requested,omitempty"`
	Delivered      int          `json:"delivered,omitempty"`
}

// CreateConversationRequest creates (or idempotently returns) a conversation.
type CreateConversationRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
}

// ConversationWithHistory bundles a conversation with its recent messages.
type ConversationWithHistory struct {
	Conversation *Conversation `json:"conversation"`
	Messages     []Message     `json:"messages"`
	Created      bool          `json:"created"`
}

// GenerateQuestionsRequest asks for practice questions outside the chat flow.
type GenerateQuestionsRequest struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	Topic          string   `json:"topic"`
	NumQuestions   int      `json:"num_questions,omitempty"`
	Difficulty     string   `json:"difficulty,omitempty"`
	QuestionTypes  []string `json:"question_types,omitempty"`
}

// GenerateQuestionsResponse reports what was produced against what was asked.
type GenerateQuestionsResponse struct {
	Questions  []Question `json:"questions"`
	Topic      string     `json:"topic"`
	Difficulty Difficulty `json:"difficulty"`
	Requested  int        `json:"requested"`
	Delivered  int        `json:"delivered"`
	Shortfall  int        `json:"shortfall"`
}

// EvaluateAnswerRequest grades a learner's answer to a previously asked question.
type EvaluateAnswerRequest struct {
	ConversationID string `json:"conversation_id"`
	QuestionID     string `json:"question_id"`
	Answer         string `json:"answer"`
}

// AnswerEvaluation is the verdict plus teaching feedback.
type AnswerEvaluation struct {
	IsCorrect     bool     `json:"is_correct"`
	CorrectAnswer []string `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	FollowUpHint  string   `json:"follow_up_hint,omitempty"`
}

// EvaluateAnswerResponse is returned from answer evaluation.
type EvaluateAnswerResponse struct {
	QuestionID      string           `json:"question_id"`
	Evaluation      AnswerEvaluation `json:"evaluation"`
	DifficultyLevel Difficulty       `json:"difficulty_level"`
}
