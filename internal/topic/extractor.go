// Package topic pulls the practice topic out of a quiz request.
package topic

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
)

const minTopicLen = 4

// Extractor asks the model for the topic named in a message.
type Extractor struct {
	completer completion.Completer
	catalog   *prompts.Catalog
}

func NewExtractor(completer completion.Completer, catalog *prompts.Catalog) *Extractor {
	return &Extractor{completer: completer, catalog: catalog}
}

// Extract returns the extracted topic, or ambientTopic when the reply is unusable:
// a gateway fallback, three characters or fewer, or just "portuguese".
func (e *Extractor) Extract(ctx context.Context, userMessage, ambientTopic string) string {
	res := e.completer.Complete(ctx, e.catalog.TopicMessages(ambientTopic, userMessage))
	if res.Fallback {
		return ambientTopic
	}
	candidate := strings.Trim(strings.TrimSpace(res.Text), "\"'`")
	if utf8.RuneCountInString(candidate) < minTopicLen || strings.EqualFold(candidate, "portuguese") {
		return ambientTopic
	}
	return candidate
}
