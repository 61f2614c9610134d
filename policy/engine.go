package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	Reasons []string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The policy must define a set rule data.turn_policy.violations.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.turn_policy.violations"),
		rego.Module("turn_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks a request against the policy.
// Input keys: message, num_questions, max_questions, difficulty, question_types.
func (e *Engine) Evaluate(ctx context.Context, input map[string]interface{}) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allowed: true}, nil
	}

	var reasons []string
	switch v := results[0].Expressions[0].Value.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				reasons = append(reasons, s)
			}
		}
	default:
		return Decision{}, fmt.Errorf("unexpected policy result type %T", v)
	}
	sort.Strings(reasons)

	return Decision{Allowed: len(reasons) == 0, Reasons: reasons}, nil
}

// DefaultPolicy is the default admission policy for chat turns and generation requests.
const DefaultPolicy = `
package turn_policy

valid_difficulties := {"easy", "medium", "hard"}

valid_question_types := {"MultipleChoice", "FillInTheBlanks"}

violations[msg] {
	input.check_message
	trim_space(input.message) == ""
	msg := "message must not be empty"
}

violations[msg] {
	input.num_questions != 0
	input.num_questions < 1
	msg := "num_questions must be at least 1"
}

violations[msg] {
	input.num_questions > input.max_questions
	msg := sprintf("num_questions must be at most %d", [input.max_questions])
}

violations[msg] {
	input.difficulty != ""
	not valid_difficulties[input.difficulty]
	msg := sprintf("unknown difficulty %q", [input.difficulty])
}

violations[msg] {
	qt := input.question_types[_]
	not valid_question_types[qt]
	msg := sprintf("unknown question type %q", [qt])
}
`
