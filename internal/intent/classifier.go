// Package intent decides what a user turn is asking for.
package intent

import (
	"context"
	"strings"

	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/logger"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
)

const shortReplyMaxTokens = 3

// Phrases that mark the last AI message as an invitation to reply.
var invitationPhrases = []string{
	"?",
	"can you",
	"could you",
	"do you",
	"would you",
	"how about",
	"have you",
}

// Classifier labels user messages with a few-shot completion.
type Classifier struct {
	completer completion.Completer
	catalog   *prompts.Catalog
	log       *logger.Logger
}

// NewClassifier creates a classifier.
func NewClassifier(completer completion.Completer, catalog *prompts.Catalog, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{completer: completer, catalog: catalog, log: log}
}

// Classify returns the model's label, or general_chat for anything unrecognised.
func (c *Classifier) Classify(ctx context.Context, userMessage, topicName string) domain.Intent {
	res := c.completer.Complete(ctx, c.catalog.IntentMessages(topicName, userMessage))
	if res.Fallback {
		return domain.IntentGeneralChat
	}
	label := normalizeLabel(res.Text)
	in, ok := domain.ParseIntent(label)
	if !ok {
		c.log.Debug("unrecognised intent label", "label", label)
		return domain.IntentGeneralChat
	}
	return in
}

// ApplyContext turns an off_topic label into general_chat when the message is a
// short reply to an AI message that invited one.
func ApplyContext(userMessage string, label domain.Intent, history []domain.Message) (domain.Intent, bool) {
	if label != domain.IntentOffTopic {
		return label, false
	}
	if len(strings.Fields(userMessage)) > shortReplyMaxTokens {
		return label, false
	}
	last, ok := lastAIMessage(history)
	if !ok || !invitesReply(last) {
		return label, false
	}
	return domain.IntentGeneralChat, true
}

// ClassifyTurn classifies the message and then applies the conversational override.
func (c *Classifier) ClassifyTurn(ctx context.Context, userMessage, topicName string, history []domain.Message) domain.Intent {
	label := c.Classify(ctx, userMessage, topicName)
	final, overridden := ApplyContext(userMessage, label, history)
	if overridden {
		c.log.Debug("short reply reclassified as general chat", "message", userMessage)
	}
	return final
}

func lastAIMessage(history []domain.Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Sender == domain.SenderAI {
			return history[i].Content, true
		}
	}
	return "", false
}

func invitesReply(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range invitationPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'`")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
