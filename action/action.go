// Package action defines the closed, registry-driven set of executable table
// reasoning operations the planner chooses from. Every action checks
// feasibility against a state and applies to produce a successor state plus
// an artifact; an action never mutates the state passed to it.
package action

import (
	"context"
	"errors"
	"fmt"

	"tqa/reasoning"
)

// Category groups actions by the kind of reasoning they perform.
type Category string

const (
	CategoryTableRetrieval Category = "table_retrieval"
	CategoryReasoning      Category = "reasoning"
	CategoryComputation    Category = "computation"
	CategoryKnowledge      Category = "knowledge_retrieval"
	CategoryDecomposition  Category = "decomposition"
	CategoryTermination    Category = "termination"
)

var (
	// ErrNotFound signals an unknown action name at resolve time.
	ErrNotFound = errors.New("action not found")
	// ErrInfeasible signals an action that cannot be applied to the current
	// state with the given parameters. Recoverable: the planner is
	// re-prompted within the retry budget.
	ErrInfeasible = errors.New("action infeasible")
)

// Action is one executable unit of the action space.
type Action interface {
	Name() string
	Category() Category
	// Feasible reports whether Apply can run against the state with the
	// given parameters. It must be side-effect free.
	Feasible(s *reasoning.State, p Params) bool
	// Apply derives a successor state and an artifact. The input state
	// stays valid and unchanged whether or not Apply succeeds.
	Apply(ctx context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error)
}

// Well-known memory keys written by the built-in actions.
const (
	KeyHeaderInfo     = "header_info"
	KeyLocatedColumns = "located_columns"
	KeyLocatedRows    = "located_rows"
	KeySortedRows     = "sorted_rows"
	KeyGroups         = "groups"
	KeyGeneralKB      = "general_knowledge"
	KeyDomainKB       = "domain_knowledge"
	KeyParallelSubQ   = "sub_questions_parallel"
	KeySerialSubQ     = "sub_questions_serial"
	KeyResult         = "result"
)

// Params carries the planner-proposed parameters of one action application.
type Params map[string]any

func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func (p Params) StringOr(key, fallback string) string {
	if v := p.String(key); v != "" {
		return v
	}
	return fallback
}

func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p Params) Int(key string) (int, bool) {
	switch v := p[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (p Params) Ints(key string) []int {
	switch v := p[key].(type) {
	case []int:
		return v
	case []any:
		out := make([]int, 0, len(v))
		for _, x := range v {
			switch n := x.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			}
		}
		return out
	}
	return nil
}

func (p Params) Maps(key string) []map[string]any {
	switch v := p[key].(type) {
	case []map[string]any:
		return v
	case []any:
		out := make([]map[string]any, 0, len(v))
		for _, x := range v {
			if m, ok := x.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func (p Params) StringMap(key string) map[string]string {
	switch v := p[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, x := range v {
			if s, ok := x.(string); ok {
				out[k] = s
			}
		}
		return out
	}
	return nil
}

func infeasible(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInfeasible, fmt.Sprintf(format, args...))
}
