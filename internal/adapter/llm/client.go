package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const chatCompletionsPath = "/v1/chat/completions"

// errorBodyLimit caps how much of a non-JSON error body ends up in the error text.
const errorBodyLimit = 512

// ChatMessage is one turn of a prompt transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the subset of the chat completions body the tutor sends.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

// ChatCompletionResponse keeps only what callers read: the model and its replies.
type ChatCompletionResponse struct {
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message *ChatMessage `json:"message,omitempty"`
}

// Text returns the first reply, or "" when there is none.
func (r *ChatCompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return ""
	}
	return r.Choices[0].Message.Content
}

func newTextResponse(model, text string) *ChatCompletionResponse {
	return &ChatCompletionResponse{
		Model:   model,
		Choices: []Choice{{Message: &ChatMessage{Role: RoleAssistant, Content: text}}},
	}
}

// Client talks to any OpenAI-compatible chat completions endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   strings.TrimSuffix(baseURL, "/") + chatCompletionsPath,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var out ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	return &out, nil
}

// apiError prefers the provider's {"error":{"message":...}} body and falls back to the raw text.
func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	var parsed struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, parsed.Error.Message)
	}
	return fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
}
