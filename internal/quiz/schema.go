package quiz

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/xiaot623/gogo/tutor/internal/domain"
)

const multipleChoiceSchema = `{
  "type": "object",
  "required": ["questionText", "questionDescription", "options", "correct_answers"],
  "properties": {
    "questionText": {"type": "string", "minLength": 1},
    "questionDescription": {"type": "string"},
    "options": {"type": "array", "items": {"type": "string"}, "minItems": 4, "maxItems": 4},
    "correct_answers": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "hint": {"type": "string"}
  }
}`

const fillInTheBlanksSchema = `{
  "type": "object",
  "required": ["questionText", "questionDescription", "questionSentence", "correct_answers"],
  "properties": {
    "questionText": {"type": "string", "minLength": 1},
    "questionDescription": {"type": "string"},
    "questionSentence": {"type": "string", "minLength": 1},
    "correct_answers": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "hint": {"type": "string"}
  }
}`

var schemaLoaders = map[domain.QuestionType]gojsonschema.JSONLoader{
	domain.QuestionTypeMultipleChoice:  gojsonschema.NewStringLoader(multipleChoiceSchema),
	domain.QuestionTypeFillInTheBlanks: gojsonschema.NewStringLoader(fillInTheBlanksSchema),
}

// rawQuestion is the shape the model is asked to return.
type rawQuestion struct {
	QuestionText        string   `json:"questionText"`
	QuestionDescription string   `json:"questionDescription"`
	QuestionSentence    string   `json:"questionSentence"`
	Options             []string `json:"options"`
	CorrectAnswers      []string `json:"correct_answers"`
	Hint                string   `json:"hint"`
}

// parseQuestion turns a model reply into a question of type qt.
// The reply may be wrapped in markdown fences or surrounded by prose.
func parseQuestion(qt domain.QuestionType, reply string) (*domain.Question, error) {
	body := cleanJSONResponse(reply)
	if body == "" {
		return nil, fmt.Errorf("reply contains no JSON object")
	}

	loader, ok := schemaLoaders[qt]
	if !ok {
		return nil, fmt.Errorf("no schema for question type %q", qt)
	}
	result, err := gojsonschema.Validate(loader, gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed for %s: %w", qt, err)
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("question failed schema validation: %s", strings.Join(msgs, "; "))
	}

	var raw rawQuestion
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question: %w", err)
	}

	q := &domain.Question{
		Type:                qt,
		QuestionText:        strings.TrimSpace(raw.QuestionText),
		QuestionDescription: strings.TrimSpace(raw.QuestionDescription),
		CorrectAnswers:      raw.CorrectAnswers,
		Hint:                strings.TrimSpace(raw.Hint),
	}
	switch qt {
	case domain.QuestionTypeMultipleChoice:
		q.Options = raw.Options
	case domain.QuestionTypeFillInTheBlanks:
		q.QuestionSentence = strings.TrimSpace(raw.QuestionSentence)
		q.BlankSeparator = domain.BlankSeparator
		q.NumberOfBlanks = 1
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// cleanJSONResponse strips markdown fences and anything outside the outermost object.
func cleanJSONResponse(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		rest = strings.TrimPrefix(rest, "json")
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		s = strings.TrimSpace(rest)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
