package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Started by an init in the genai dependency chain, not by this package.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

// scriptedCompleter answers each call with the next reply produced by fn.
type scriptedCompleter struct {
	mu      sync.Mutex
	fn      func(call int, prompt string) completion.Result
	prompts []string
	systems []string
}

func (s *scriptedCompleter) Complete(ctx context.Context, messages []llm.ChatMessage) completion.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.systems = append(s.systems, messages[0].Content)
	s.prompts = append(s.prompts, messages[len(messages)-1].Content)
	return s.fn(len(s.prompts), messages[len(messages)-1].Content)
}

func (s *scriptedCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func mcJSON(text string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"questionText":        text,
		"questionDescription": "Choose one.",
		"options":             []string{"right", "wrong1", "wrong2", "wrong3"},
		"correct_answers":     []string{"right"},
		"hint":                "think",
	})
	return string(b)
}

func fibJSON(sentence string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"questionText":        "Fill in the blank:",
		"questionDescription": "Complete the sentence.",
		"questionSentence":    sentence,
		"correct_answers":     []string{"falo"},
		"hint":                "present tense",
	})
	return string(b)
}

func ok(text string) completion.Result { return completion.Result{Text: text} }

func newTestGenerator(c completion.Completer, opts Options) *Generator {
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(42))
	}
	return NewGenerator(c, prompts.MustDefault(), opts, nil)
}

func TestMultipleChoiceOverGeneratesThreeTimes(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return ok(mcJSON(fmt.Sprintf("Question %d?", call)))
	}}
	g := newTestGenerator(c, Options{})

	res := g.Generate(context.Background(), Request{
		Topic:      "nouns",
		Count:      2,
		Difficulty: domain.DifficultyEasy,
		Types:      []domain.QuestionType{domain.QuestionTypeMultipleChoice},
	})

	assert.Equal(t, 6, c.calls())
	require.Len(t, res.Questions, 2)
	assert.Equal(t, 0, res.Shortfall)
	assert.Equal(t, 2, res.Requested)
	// Trimming keeps generation order.
	assert.Equal(t, "Question 1?", res.Questions[0].QuestionText)
	assert.Equal(t, "Question 2?", res.Questions[1].QuestionText)
	assert.Contains(t, c.prompts[0], "'nouns (variation 1)'")
	assert.Contains(t, c.prompts[5], "'nouns (variation 6)'")
}

func TestFillInTheBlanksIsNotOverGenerated(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return ok(fibJSON(fmt.Sprintf("Eu ____ português %d.", call)))
	}}
	g := newTestGenerator(c, Options{})

	res := g.Generate(context.Background(), Request{
		Topic: "verbs",
		Count: 2,
		Types: []domain.QuestionType{domain.QuestionTypeFillInTheBlanks},
	})

	assert.Equal(t, 2, c.calls())
	require.Len(t, res.Questions, 2)
	for _, q := range res.Questions {
		assert.Equal(t, domain.BlankSeparator, q.BlankSeparator)
		assert.Equal(t, 1, q.NumberOfBlanks)
		assert.Equal(t, domain.DifficultyMedium, q.Difficulty)
	}
}

func TestShortfallIsReportedHonestly(t *testing.T) {
	// Only two distinct questions ever come back.
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return ok(mcJSON(fmt.Sprintf("Question %d?", call%2)))
	}}
	g := newTestGenerator(c, Options{BackfillAttempts: 3})

	res := g.Generate(context.Background(), Request{
		Topic: "nouns",
		Count: 5,
		Types: []domain.QuestionType{domain.QuestionTypeMultipleChoice},
	})

	assert.Len(t, res.Questions, 2)
	assert.Equal(t, 3, res.Shortfall)
	assert.Equal(t, 0, res.Padded)
	// 15 initial items plus 3 backfill attempts.
	assert.Equal(t, 18, c.calls())
	assert.Contains(t, c.prompts[15], "'nouns (backfill 1)'")
}

func TestUniquenessAndOptionIntegrity(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		// Every third reply repeats an earlier question.
		return ok(mcJSON(fmt.Sprintf("Question %d?", call-call/3)))
	}}
	g := newTestGenerator(c, Options{})

	res := g.Generate(context.Background(), Request{
		Topic:      "nouns",
		Count:      4,
		Difficulty: domain.DifficultyHard,
		Types:      []domain.QuestionType{domain.QuestionTypeMultipleChoice},
	})

	require.Len(t, res.Questions, 4)
	seenText := map[string]bool{}
	seenID := map[string]bool{}
	for _, q := range res.Questions {
		assert.False(t, seenText[q.QuestionText], "duplicate %q", q.QuestionText)
		assert.False(t, seenID[q.ID], "duplicate id %q", q.ID)
		seenText[q.QuestionText] = true
		seenID[q.ID] = true

		assert.Len(t, q.Options, 4)
		assert.Contains(t, q.Options, q.CorrectAnswers[0])
		assert.Equal(t, domain.DifficultyHard, q.Difficulty)
		assert.Empty(t, cmp.Diff([]string{"right", "wrong1", "wrong2", "wrong3"}, sorted(q.Options)))
	}
}

func TestOptionsAreShuffled(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return ok(mcJSON(fmt.Sprintf("Question %d?", call)))
	}}
	g := newTestGenerator(c, Options{})

	moved := false
	for i := 0; i < 10 && !moved; i++ {
		q, err := g.GenerateOne(context.Background(), domain.QuestionTypeMultipleChoice, domain.DifficultyEasy, "nouns", "")
		require.NoError(t, err)
		moved = q.Options[0] != "right"
	}
	assert.True(t, moved, "correct answer never left the first slot")
}

func TestGenerateOneWalksTheLadder(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		switch call {
		case 1:
			return ok("Sure! Here is a question about verbs.")
		default:
			return ok("```json\n" + fibJSON("Nós ____ inglês.") + "\n```")
		}
	}}
	g := newTestGenerator(c, Options{})

	q, err := g.GenerateOne(context.Background(), domain.QuestionTypeFillInTheBlanks, domain.DifficultyEasy, "verbs", "custom system")
	require.NoError(t, err)
	assert.Equal(t, "Nós ____ inglês.", q.QuestionSentence)
	assert.Equal(t, 2, c.calls())
	assert.Equal(t, []string{"custom system", "custom system"}, c.systems)
	assert.True(t, strings.HasPrefix(c.prompts[1], "Create a simple Portuguese fill-in-the-blank question"))
}

func TestGenerateOneFailsAfterThreeTiers(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		if call == 2 {
			return completion.Result{Text: "I couldn't process your request due to a technical issue: timeout...", Fallback: true}
		}
		// Three options only: schema rejects it.
		return ok(`{"questionText":"Q","questionDescription":"d","options":["a","b","c"],"correct_answers":["a"]}`)
	}}
	g := newTestGenerator(c, Options{})

	_, err := g.GenerateOne(context.Background(), domain.QuestionTypeMultipleChoice, domain.DifficultyEasy, "nouns", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 prompt tiers failed")
	assert.Equal(t, 3, c.calls())
	assert.Equal(t, "You are a Portuguese language expert.", c.systems[0])
}

func TestGenerateOneRejectsCorrectAnswerMissingFromOptions(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return ok(`{"questionText":"Q","questionDescription":"d","options":["a","b","c","d"],"correct_answers":["z"]}`)
	}}
	g := newTestGenerator(c, Options{})

	_, err := g.GenerateOne(context.Background(), domain.QuestionTypeMultipleChoice, domain.DifficultyEasy, "nouns", "")
	assert.Error(t, err)
}

func TestGenerateOneRejectsRepeatedOptions(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return ok(`{"questionText":"Q","questionDescription":"d","options":["a","a","b","c"],"correct_answers":["a"]}`)
	}}
	g := newTestGenerator(c, Options{})

	_, err := g.GenerateOne(context.Background(), domain.QuestionTypeMultipleChoice, domain.DifficultyEasy, "nouns", "")
	require.Error(t, err)
	assert.Equal(t, 3, c.calls())
}

func TestBackfillRecoversFromDuplicates(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, prompt string) completion.Result {
		if strings.Contains(prompt, "(backfill") {
			return ok(fibJSON("Ela ____ muito."))
		}
		return ok(fibJSON("Eu ____ português."))
	}}
	g := newTestGenerator(c, Options{})

	res := g.Generate(context.Background(), Request{
		Topic: "verbs",
		Count: 2,
		Types: []domain.QuestionType{domain.QuestionTypeFillInTheBlanks},
	})

	require.Len(t, res.Questions, 2)
	assert.Equal(t, 0, res.Shortfall)
	assert.Equal(t, 3, c.calls())
	assert.Equal(t, "Ela ____ muito.", res.Questions[1].QuestionSentence)
}

func TestPadShortfallFromPool(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return completion.Result{Text: "down", Fallback: true}
	}}
	g := newTestGenerator(c, Options{PadShortfall: true})

	res := g.Generate(context.Background(), Request{
		Topic: "nouns",
		Count: 3,
		Types: []domain.QuestionType{domain.QuestionTypeMultipleChoice},
	})

	require.Len(t, res.Questions, 3)
	assert.Equal(t, 3, res.Padded)
	assert.Equal(t, 0, res.Shortfall)
	for _, q := range res.Questions {
		assert.NoError(t, q.Validate())
		assert.NotEmpty(t, q.ID)
		assert.Equal(t, domain.DifficultyMedium, q.Difficulty)
	}
}

func TestPadShortfallSkipsFillInTheBlanks(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return completion.Result{Text: "down", Fallback: true}
	}}
	g := newTestGenerator(c, Options{PadShortfall: true})

	res := g.Generate(context.Background(), Request{
		Topic: "verbs",
		Count: 2,
		Types: []domain.QuestionType{domain.QuestionTypeFillInTheBlanks},
	})

	assert.Empty(t, res.Questions)
	assert.Equal(t, 2, res.Shortfall)
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	c := &scriptedCompleter{fn: func(call int, _ string) completion.Result {
		return ok(mcJSON(fmt.Sprintf("Question %d?", call)))
	}}
	g := newTestGenerator(c, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := g.Generate(ctx, Request{Topic: "nouns", Count: 2, Types: []domain.QuestionType{domain.QuestionTypeMultipleChoice}})

	assert.Equal(t, 0, c.calls())
	assert.Equal(t, 2, res.Shortfall)
}

func TestGenerateZeroCount(t *testing.T) {
	g := newTestGenerator(&scriptedCompleter{}, Options{})
	res := g.Generate(context.Background(), Request{Topic: "x"})
	assert.NotNil(t, res.Questions)
	assert.Empty(t, res.Questions)
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONResponse("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONResponse("Here you go: {\"a\":1} enjoy"))
	assert.Equal(t, "", cleanJSONResponse("no json here"))
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
