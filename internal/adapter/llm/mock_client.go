package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
)

// MockClient is a mock implementation of LLMClient for local runs and tests.
// It recognises the tutor's prompt shapes well enough to drive every dispatcher branch.
type MockClient struct {
	seq atomic.Int64
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	responseContent := m.generateMockResponse(req)

	return newTextResponse(req.Model, responseContent), nil
}

// generateMockResponse generates a mock response based on the request.
func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var system string
	if len(req.Messages) > 0 && req.Messages[0].Role == RoleSystem {
		system = strings.ToLower(req.Messages[0].Content)
	}

	// Get the last user message
	var lastUserMessage string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			lastUserMessage = req.Messages[i].Content
			break
		}
	}
	lower := strings.ToLower(lastUserMessage)

	switch {
	case strings.Contains(system, "classifier"):
		return mockIntent(lower)
	case strings.Contains(system, "extract the specific topic"):
		return strings.TrimSpace(lastUserMessage)
	case strings.Contains(lower, "fill-in-the-blank") && strings.Contains(lower, "json"):
		return m.mockFillInTheBlanks()
	case strings.Contains(lower, "multiple choice") && strings.Contains(lower, "json"):
		return m.mockMultipleChoice()
	case lastUserMessage == "":
		return "[MOCK] This is a mock response from the LLM client."
	}

	return fmt.Sprintf("[MOCK] Received your message: %q. This is a mock response.", truncate(lastUserMessage, 100))
}

func mockIntent(msg string) string {
	switch {
	case strings.Contains(msg, "multiple choice"):
		return "question_generation:multiple_choice"
	case strings.Contains(msg, "quiz"), strings.Contains(msg, "fill in the blank"), strings.Contains(msg, "practice"):
		return "question_generation:fill_in_the_blanks"
	case strings.Contains(msg, "weather"), strings.Contains(msg, "football"):
		return "off_topic"
	}
	return "general_chat"
}

func (m *MockClient) mockMultipleChoice() string {
	n := m.seq.Add(1)
	b, _ := json.Marshal(map[string]interface{}{
		"questionText":        fmt.Sprintf("[MOCK %d] What is the Portuguese word for 'house'?", n),
		"questionDescription": "Choose the correct translation.",
		"options":             []string{"casa", "carro", "livro", "mesa"},
		"correct_answers":     []string{"casa"},
		"hint":                "It ends in 'a'.",
	})
	return string(b)
}

func (m *MockClient) mockFillInTheBlanks() string {
	n := m.seq.Add(1)
	b, _ := json.Marshal(map[string]interface{}{
		"questionText":        "Complete the sentence with the correct verb form:",
		"questionDescription": "Fill in the blank with the correct conjugation of 'falar'.",
		"questionSentence":    fmt.Sprintf("Eu ____ português todos os dias. (%d)", n),
		"correct_answers":     []string{"falo"},
		"hint":                "First person singular, present tense.",
	})
	return string(b)
}

// truncate truncates a string to the given length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
