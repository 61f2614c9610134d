// Package completion wraps the LLM client with a fail-soft contract:
// callers always get text back, and a flag telling them whether it is an apology.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/logger"
)

const maxErrorDetail = 100

// Result is the outcome of one completion. Fallback is true when Text is the apology.
type Result struct {
	Text     string
	Fallback bool
}

// Completer is what the classifier, extractor, generator and dispatcher depend on.
type Completer interface {
	Complete(ctx context.Context, messages []llm.ChatMessage) Result
}

// Gateway implements Completer over an llm.LLMClient.
type Gateway struct {
	client      llm.LLMClient
	model       string
	temperature float64
	log         *logger.Logger
}

// NewGateway creates a gateway that sends every request with the given model and temperature.
func NewGateway(client llm.LLMClient, model string, temperature float64, log *logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{client: client, model: model, temperature: temperature, log: log}
}

var _ Completer = (*Gateway)(nil)

// Complete never returns an error and never retries.
func (g *Gateway) Complete(ctx context.Context, messages []llm.ChatMessage) Result {
	temp := g.temperature
	resp, err := g.client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: &temp,
	})
	if err == nil {
		var text string
		text, err = firstChoice(resp)
		if err == nil {
			return Result{Text: text}
		}
	}

	g.log.Warn("completion failed, returning fallback text", "model", g.model, "error", err)
	return Result{Text: FallbackText(err), Fallback: true}
}

var errNoChoices = errors.New("completion response has no choices")

func firstChoice(resp *llm.ChatCompletionResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", errNoChoices
	}
	return resp.Text(), nil
}

// FallbackText is the apology shown to the user when a completion fails.
func FallbackText(err error) string {
	detail := "unknown error"
	if err != nil {
		detail = err.Error()
	}
	if len(detail) > maxErrorDetail {
		detail = strings.ToValidUTF8(detail[:maxErrorDetail], "")
	}
	return fmt.Sprintf("I couldn't process your request due to a technical issue: %s...", detail)
}
