// Package prompts is the single home of every prompt the tutor sends to the model.
// The text lives in prompts.yaml and is rendered with text/template.
package prompts

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/domain"
)

//go:embed prompts.yaml
var defaultYAML []byte

// Example is one few-shot exchange.
type Example struct {
	User      string `yaml:"user"`
	Assistant string `yaml:"assistant"`
}

type fewShot struct {
	System   string    `yaml:"system"`
	Examples []Example `yaml:"examples"`
}

type evaluation struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type poolItem struct {
	QuestionText        string   `yaml:"questionText"`
	QuestionDescription string   `yaml:"questionDescription"`
	Options             []string `yaml:"options"`
	CorrectAnswers      []string `yaml:"correct_answers"`
	Hint                string   `yaml:"hint"`
}

type document struct {
	DefaultSystem    string                           `yaml:"default_system"`
	Intent           fewShot                          `yaml:"intent"`
	TopicExtraction  fewShot                          `yaml:"topic_extraction"`
	OffTopicRedirect string                           `yaml:"off_topic_redirect"`
	GeneralChat      string                           `yaml:"general_chat"`
	QuestionSystem   string                           `yaml:"question_system"`
	GeneratorSystem  string                           `yaml:"generator_system"`
	Evaluation       evaluation                       `yaml:"evaluation"`
	Questions        map[domain.QuestionType][]string `yaml:"questions"`
	FallbackPool     []poolItem                       `yaml:"fallback_pool"`
}

// Catalog holds the parsed templates.
type Catalog struct {
	doc       document
	templates map[string]*template.Template
	questions map[domain.QuestionType][]*template.Template
}

// Default parses the embedded prompts.yaml.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// MustDefault is Default for package-level wiring and tests.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}

	c := &Catalog{
		doc:       doc,
		templates: map[string]*template.Template{},
		questions: map[domain.QuestionType][]*template.Template{},
	}
	named := map[string]string{
		"intent":           doc.Intent.System,
		"topic_extraction": doc.TopicExtraction.System,
		"off_topic":        doc.OffTopicRedirect,
		"general_chat":     doc.GeneralChat,
		"question_system":  doc.QuestionSystem,
		"evaluation_user":  doc.Evaluation.User,
	}
	for name, text := range named {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("prompt %q is empty", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %q: %w", name, err)
		}
		c.templates[name] = tmpl
	}

	for _, qt := range []domain.QuestionType{domain.QuestionTypeMultipleChoice, domain.QuestionTypeFillInTheBlanks} {
		tiers := doc.Questions[qt]
		if len(tiers) == 0 {
			return nil, fmt.Errorf("no question prompts for %s", qt)
		}
		for i, text := range tiers {
			tmpl, err := template.New(fmt.Sprintf("%s_%d", qt, i)).Parse(text)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s tier %d: %w", qt, i, err)
			}
			c.questions[qt] = append(c.questions[qt], tmpl)
		}
	}
	return c, nil
}

func (c *Catalog) render(name string, data interface{}) string {
	var sb strings.Builder
	if err := c.templates[name].Execute(&sb, data); err != nil {
		// Templates are validated at parse time; data is always a struct we control.
		panic(fmt.Sprintf("prompts: render %s: %v", name, err))
	}
	return sb.String()
}

func fewShotMessages(system string, examples []Example, userMessage string) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, 2+2*len(examples))
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: system})
	for _, ex := range examples {
		msgs = append(msgs,
			llm.ChatMessage{Role: llm.RoleUser, Content: ex.User},
			llm.ChatMessage{Role: llm.RoleAssistant, Content: ex.Assistant},
		)
	}
	return append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: userMessage})
}

type topicData struct {
	Topic     string
	CMSPrompt string
}

// DefaultSystem is the system prompt used when the CMS has none.
func (c *Catalog) DefaultSystem() string {
	return c.doc.DefaultSystem
}

// IntentExamples exposes the canonical few-shot set.
func (c *Catalog) IntentExamples() []Example {
	return c.doc.Intent.Examples
}

// IntentMessages builds the classification request for one user message.
func (c *Catalog) IntentMessages(topic, userMessage string) []llm.ChatMessage {
	return fewShotMessages(c.render("intent", topicData{Topic: topic}), c.doc.Intent.Examples, userMessage)
}

// TopicMessages builds the topic extraction request.
func (c *Catalog) TopicMessages(topic, userMessage string) []llm.ChatMessage {
	return fewShotMessages(c.render("topic_extraction", topicData{Topic: topic}), c.doc.TopicExtraction.Examples, userMessage)
}

// OffTopicMessages builds the redirect request.
func (c *Catalog) OffTopicMessages(topic, userMessage string) []llm.ChatMessage {
	return []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: c.render("off_topic", topicData{Topic: topic})},
		{Role: llm.RoleUser, Content: userMessage},
	}
}

// GeneralChatMessages builds a free-form reply request with the conversation history.
// An empty cmsPrompt falls back to the default system prompt.
func (c *Catalog) GeneralChatMessages(topic, cmsPrompt string, history []domain.Message, userMessage string) []llm.ChatMessage {
	if strings.TrimSpace(cmsPrompt) == "" {
		cmsPrompt = c.doc.DefaultSystem
	}
	msgs := make([]llm.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: c.render("general_chat", topicData{Topic: topic, CMSPrompt: cmsPrompt})})
	for _, m := range history {
		role := llm.RoleUser
		if m.Sender == domain.SenderAI {
			role = llm.RoleAssistant
		}
		content := m.Content
		if m.Payload != nil && m.Payload.Text != "" {
			content = m.Payload.Text
		}
		msgs = append(msgs, llm.ChatMessage{Role: role, Content: content})
	}
	return append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: userMessage})
}

// QuestionSystem is the generator system prompt derived from a CMS prompt.
func (c *Catalog) QuestionSystem(topic, cmsPrompt string) string {
	return c.render("question_system", topicData{Topic: topic, CMSPrompt: cmsPrompt})
}

// GeneratorSystem is the generator system prompt when no override is given.
func (c *Catalog) GeneratorSystem() string {
	return c.doc.GeneratorSystem
}

// QuestionTiers returns how many prompt tiers exist for a type.
func (c *Catalog) QuestionTiers(qt domain.QuestionType) int {
	return len(c.questions[qt])
}

// QuestionPrompt renders tier (0 = fullest) of the generation ladder.
func (c *Catalog) QuestionPrompt(qt domain.QuestionType, tier int, topic string, difficulty domain.Difficulty) (string, error) {
	tiers := c.questions[qt]
	if tier < 0 || tier >= len(tiers) {
		return "", fmt.Errorf("no tier %d for %s", tier, qt)
	}
	var sb strings.Builder
	data := struct {
		Topic      string
		Difficulty domain.Difficulty
	}{topic, difficulty}
	if err := tiers[tier].Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s tier %d: %w", qt, tier, err)
	}
	return sb.String(), nil
}

// EvaluationMessages asks for feedback on an already graded answer.
func (c *Catalog) EvaluationMessages(q domain.Question, answer string, correct bool) []llm.ChatMessage {
	data := struct {
		Question string
		Sentence string
		Expected string
		Answer   string
		Correct  bool
	}{
		Question: q.QuestionText,
		Sentence: q.QuestionSentence,
		Expected: strings.Join(q.CorrectAnswers, " / "),
		Answer:   answer,
		Correct:  correct,
	}
	return []llm.ChatMessage{
		{Role: llm.RoleSystem, Content: c.doc.Evaluation.System},
		{Role: llm.RoleUser, Content: c.render("evaluation_user", data)},
	}
}

// FallbackPool returns fresh copies of the hand-authored multiple-choice items.
func (c *Catalog) FallbackPool() []domain.Question {
	out := make([]domain.Question, 0, len(c.doc.FallbackPool))
	for _, p := range c.doc.FallbackPool {
		out = append(out, domain.Question{
			Type:                domain.QuestionTypeMultipleChoice,
			QuestionText:        p.QuestionText,
			QuestionDescription: p.QuestionDescription,
			Options:             append([]string(nil), p.Options...),
			CorrectAnswers:      append([]string(nil), p.CorrectAnswers...),
			Hint:                p.Hint,
		})
	}
	return out
}
