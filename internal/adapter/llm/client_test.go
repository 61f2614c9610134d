package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Temperature == nil || *req.Temperature != 0.7 {
			t.Fatalf("expected temperature 0.7, got %v", req.Temperature)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt","choices":[{"index":0,"message":{"role":"assistant","content":"olá"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	}))
	defer server.Close()

	temp := 0.7
	client := NewClient(server.URL+"/", "sk-test", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:       "gpt",
		Messages:    []ChatMessage{{Role: RoleUser, Content: "hello"}},
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("CreateChatCompletion failed: %v", err)
	}
	if resp.Model != "gpt" || len(resp.Choices) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	assert.Equal(t, "olá", resp.Text())
}

func TestClientCreateChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion endpoint returned 401: bad key")
}

func TestClientCreateChatCompletionMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "gpt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode completion response")
}

func TestMockClientRecognisesPromptShapes(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	ask := func(system, user string) string {
		msgs := []ChatMessage{}
		if system != "" {
			msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: system})
		}
		msgs = append(msgs, ChatMessage{Role: RoleUser, Content: user})
		resp, err := m.CreateChatCompletion(ctx, &ChatCompletionRequest{Model: "mock", Messages: msgs})
		require.NoError(t, err)
		return resp.Choices[0].Message.Content
	}

	assert.Equal(t, "question_generation:multiple_choice", ask("You are a classifier.", "multiple choice please"))
	assert.Equal(t, "off_topic", ask("You are a classifier.", "what's the weather?"))
	assert.Equal(t, "Portuguese verbs", ask("Extract the specific topic the user wants.", " Portuguese verbs "))

	first := ask("", "Create a multiple choice question. Format your response as a valid JSON object")
	second := ask("", "Create a multiple choice question. Format your response as a valid JSON object")
	assert.NotEqual(t, first, second)

	var q map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(first), &q))
	assert.Len(t, q["options"], 4)

	fib := ask("", "Create a Portuguese fill-in-the-blank question. Return ONLY a JSON object")
	assert.True(t, strings.Contains(fib, "____"))
}

func TestToGeminiContentsSplitsSystem(t *testing.T) {
	system, contents := toGeminiContents([]ChatMessage{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "oi"},
		{Role: RoleAssistant, Content: "olá"},
		{Role: RoleSystem, Content: "use HTML"},
	})
	assert.Equal(t, "be brief\n\nuse HTML", system)
	require.Len(t, contents, 2)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "olá", contents[1].Parts[0].Text)
}
