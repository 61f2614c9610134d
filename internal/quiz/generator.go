// Package quiz generates practice questions with uniqueness and best-effort count guarantees.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xiaot623/gogo/tutor/internal/adapter/llm"
	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/domain"
	"github.com/xiaot623/gogo/tutor/internal/logger"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
)

const (
	overGenerationFactor = 3
	minBackfillAttempts  = 3
	maxBackfillAttempts  = 5
)

// Options tunes the generator.
type Options struct {
	// BackfillAttempts is clamped to [3, 5].
	BackfillAttempts int
	// PadShortfall fills multiple-choice shortfalls from the hand-authored pool.
	PadShortfall bool
	// Rand drives type selection and option shuffling. Nil seeds from the clock.
	Rand *rand.Rand
}

// Request describes one batch.
type Request struct {
	Topic        string
	Count        int
	Difficulty   domain.Difficulty
	Types        []domain.QuestionType
	SystemPrompt string
}

// Result reports what was produced. Shortfall is Requested minus len(Questions).
type Result struct {
	Questions []domain.Question
	Requested int
	Shortfall int
	Padded    int
}

// Generator produces validated, de-duplicated questions.
type Generator struct {
	completer completion.Completer
	catalog   *prompts.Catalog
	log       *logger.Logger

	backfillAttempts int
	padShortfall     bool

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator.
func NewGenerator(completer completion.Completer, catalog *prompts.Catalog, opts Options, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	attempts := opts.BackfillAttempts
	if attempts < minBackfillAttempts {
		attempts = minBackfillAttempts
	}
	if attempts > maxBackfillAttempts {
		attempts = maxBackfillAttempts
	}
	return &Generator{
		completer:        completer,
		catalog:          catalog,
		log:              log,
		backfillAttempts: attempts,
		padShortfall:     opts.PadShortfall,
		rng:              rng,
	}
}

// Generate never fails: it returns as many unique questions as it could make, up to Count.
func (g *Generator) Generate(ctx context.Context, req Request) Result {
	res := Result{Requested: req.Count, Questions: []domain.Question{}}
	if req.Count <= 0 {
		return res
	}
	types := req.Types
	if len(types) == 0 {
		types = []domain.QuestionType{domain.QuestionTypeMultipleChoice, domain.QuestionTypeFillInTheBlanks}
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = domain.DifficultyMedium
	}

	set := newUniqueSet()

	initial := req.Count
	if len(types) == 1 && types[0] == domain.QuestionTypeMultipleChoice {
		initial = overGenerationFactor * req.Count
	}
	for i := 1; i <= initial && ctx.Err() == nil; i++ {
		g.attempt(ctx, set, g.pickType(types), difficulty, fmt.Sprintf("%s (variation %d)", req.Topic, i), req.SystemPrompt)
	}

	for n := 1; set.len() < req.Count && n <= g.backfillAttempts && ctx.Err() == nil; n++ {
		g.attempt(ctx, set, g.pickType(types), difficulty, fmt.Sprintf("%s (backfill %d)", req.Topic, n), req.SystemPrompt)
	}

	if g.padShortfall && set.len() < req.Count && containsType(types, domain.QuestionTypeMultipleChoice) {
		res.Padded = g.pad(set, req.Count, difficulty)
	}

	res.Questions = set.items
	if len(res.Questions) > req.Count {
		res.Questions = res.Questions[:req.Count]
	}
	res.Shortfall = req.Count - len(res.Questions)
	if res.Shortfall > 0 {
		g.log.Warn("question generation fell short", "topic", req.Topic, "requested", req.Count, "delivered", len(res.Questions))
	}
	return res
}

func (g *Generator) attempt(ctx context.Context, set *uniqueSet, qt domain.QuestionType, difficulty domain.Difficulty, topic, systemPrompt string) {
	q, err := g.GenerateOne(ctx, qt, difficulty, topic, systemPrompt)
	if err != nil {
		g.log.Debug("question item failed", "topic", topic, "type", qt, "error", err)
		return
	}
	if !set.add(*q) {
		g.log.Debug("duplicate question discarded", "topic", topic)
	}
}

// GenerateOne walks the prompt ladder for a single item. It is the only call that returns an error.
func (g *Generator) GenerateOne(ctx context.Context, qt domain.QuestionType, difficulty domain.Difficulty, topic, systemPrompt string) (*domain.Question, error) {
	if systemPrompt == "" {
		systemPrompt = g.catalog.GeneratorSystem()
	}
	tiers := g.catalog.QuestionTiers(qt)
	if tiers == 0 {
		return nil, fmt.Errorf("unsupported question type %q", qt)
	}

	var lastErr error
	for tier := 0; tier < tiers; tier++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prompt, err := g.catalog.QuestionPrompt(qt, tier, topic, difficulty)
		if err != nil {
			return nil, err
		}
		reply := g.completer.Complete(ctx, []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: prompt},
		})
		if reply.Fallback {
			lastErr = errors.New(reply.Text)
			continue
		}
		q, err := parseQuestion(qt, reply.Text)
		if err != nil {
			lastErr = fmt.Errorf("tier %d: %w", tier, err)
			continue
		}
		g.finalize(q, difficulty)
		return q, nil
	}
	return nil, fmt.Errorf("all %d prompt tiers failed for %s: %w", tiers, qt, lastErr)
}

// finalize assigns identity and difficulty and shuffles multiple-choice options.
func (g *Generator) finalize(q *domain.Question, difficulty domain.Difficulty) {
	q.ID = uuid.New().String()
	q.Difficulty = difficulty
	if q.Type == domain.QuestionTypeMultipleChoice {
		opts := append([]string(nil), q.Options...)
		g.mu.Lock()
		g.rng.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
		g.mu.Unlock()
		q.Options = opts
	}
}

func (g *Generator) pickType(types []domain.QuestionType) domain.QuestionType {
	if len(types) == 1 {
		return types[0]
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return types[g.rng.Intn(len(types))]
}

// pad tops up the set from the fallback pool and returns how many it added.
func (g *Generator) pad(set *uniqueSet, count int, difficulty domain.Difficulty) int {
	added := 0
	for _, q := range g.catalog.FallbackPool() {
		if set.len() >= count {
			break
		}
		g.finalize(&q, difficulty)
		if set.add(q) {
			added++
		}
	}
	return added
}

type uniqueSet struct {
	seen  map[string]struct{}
	items []domain.Question
}

func newUniqueSet() *uniqueSet {
	return &uniqueSet{seen: map[string]struct{}{}, items: []domain.Question{}}
}

func (s *uniqueSet) add(q domain.Question) bool {
	key := q.DedupKey()
	if _, dup := s.seen[key]; dup {
		return false
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, q)
	return true
}

func (s *uniqueSet) len() int {
	return len(s.items)
}

func containsType(types []domain.QuestionType, qt domain.QuestionType) bool {
	for _, t := range types {
		if t == qt {
			return true
		}
	}
	return false
}
