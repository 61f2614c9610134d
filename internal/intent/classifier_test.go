package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
)

type fixedCompleter struct {
	result completion.Result
	calls  int
	last   []llm.ChatMessage
}

func (f *fixedCompleter) Complete(ctx context.Context, messages []llm.ChatMessage) completion.Result {
	f.calls++
	f.last = messages
	return f.result
}

func newClassifier(reply string, fallback bool) (*Classifier, *fixedCompleter) {
	fc := &fixedCompleter{result: completion.Result{Text: reply, Fallback: fallback}}
	return NewClassifier(fc, prompts.MustDefault(), nil), fc
}

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		reply string
		want  domain.Intent
	}{
		{"question_generation:multiple_choice", domain.IntentMultipleChoice},
		{"  Question_Generation:Fill_In_The_Blanks.\n", domain.IntentFillInTheBlanks},
		{"`off_topic`", domain.IntentOffTopic},
		{"\"general_chat\"", domain.IntentGeneralChat},
		{"question_generation", domain.IntentFillInTheBlanks},
		{"I think this is a quiz request", domain.IntentGeneralChat},
		{"", domain.IntentGeneralChat},
	}

	for _, tt := range tests {
		c, _ := newClassifier(tt.reply, false)
		assert.Equal(t, tt.want, c.Classify(context.Background(), "msg", "Portuguese language"), "reply %q", tt.reply)
	}
}

func TestClassifyFallbackIsGeneralChat(t *testing.T) {
	c, fc := newClassifier("off_topic", true)

	assert.Equal(t, domain.IntentGeneralChat, c.Classify(context.Background(), "weather?", "Portuguese language"))
	assert.Equal(t, 1, fc.calls)
	assert.Equal(t, "weather?", fc.last[len(fc.last)-1].Content)
}

func aiSays(text string) domain.Message {
	return domain.Message{Sender: domain.SenderAI, Content: text}
}

func userSays(text string) domain.Message {
	return domain.Message{Sender: domain.SenderUser, Content: text}
}

func TestApplyContextOverridesShortReplyToQuestion(t *testing.T) {
	history := []domain.Message{userSays("Olá"), aiSays("Would you like to try some verbs?")}

	got, overridden := ApplyContext("Maybe", domain.IntentOffTopic, history)
	assert.True(t, overridden)
	assert.Equal(t, domain.IntentGeneralChat, got)
}

func TestApplyContextRules(t *testing.T) {
	invite := []domain.Message{aiSays("How about practising greetings")}
	statement := []domain.Message{aiSays("Great job today.")}

	tests := []struct {
		name    string
		msg     string
		label   domain.Intent
		history []domain.Message
		want    domain.Intent
	}{
		{"phrase without question mark", "sure thing", domain.IntentOffTopic, invite, domain.IntentGeneralChat},
		{"four tokens stay off topic", "what about the football", domain.IntentOffTopic, invite, domain.IntentOffTopic},
		{"no invitation", "ok", domain.IntentOffTopic, statement, domain.IntentOffTopic},
		{"empty history", "ok", domain.IntentOffTopic, nil, domain.IntentOffTopic},
		{"non off-topic untouched", "yes", domain.IntentMultipleChoice, invite, domain.IntentMultipleChoice},
		{"only last AI message counts", "no", domain.IntentOffTopic, []domain.Message{aiSays("Do you like it?"), aiSays("Bye."), userSays("hm")}, domain.IntentOffTopic},
		{"could you counts", "not now", domain.IntentOffTopic, []domain.Message{aiSays("Could you conjugate ser")}, domain.IntentGeneralChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ApplyContext(tt.msg, tt.label, tt.history)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyTurn(t *testing.T) {
	c, _ := newClassifier("off_topic", false)
	history := []domain.Message{aiSays("Do you want another question?")}

	assert.Equal(t, domain.IntentGeneralChat, c.ClassifyTurn(context.Background(), "no thanks", "Portuguese language", history))
	assert.Equal(t, domain.IntentOffTopic, c.ClassifyTurn(context.Background(), "tell me about the weather", "Portuguese language", history))
}
