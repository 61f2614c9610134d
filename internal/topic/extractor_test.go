package topic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
)

type fixedCompleter completion.Result

func (f fixedCompleter) Complete(ctx context.Context, messages []llm.ChatMessage) completion.Result {
	return completion.Result(f)
}

func TestExtract(t *testing.T) {
	const ambient = "Portuguese language"
	tests := []struct {
		name  string
		reply completion.Result
		want  string
	}{
		{"accepted", completion.Result{Text: " Portuguese prepositions \n"}, "Portuguese prepositions"},
		{"quoted", completion.Result{Text: "\"Days of the week\""}, "Days of the week"},
		{"three characters rejected", completion.Result{Text: "ser "}, ambient},
		{"exactly four", completion.Result{Text: "verb"}, "verb"},
		{"three accented characters rejected", completion.Result{Text: "Olá"}, ambient},
		{"four accented characters", completion.Result{Text: "café"}, "café"},
		{"bare portuguese", completion.Result{Text: "Portuguese"}, ambient},
		{"empty", completion.Result{Text: ""}, ambient},
		{"fallback", completion.Result{Text: "I couldn't process your request due to a technical issue: x...", Fallback: true}, ambient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(fixedCompleter(tt.reply), prompts.MustDefault())
			assert.Equal(t, tt.want, e.Extract(context.Background(), "quiz me", ambient))
		})
	}
}
