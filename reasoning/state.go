// Package reasoning holds the immutable per-step search state and the trace
// model recording one root-to-leaf trajectory.
package reasoning

import (
	"tqa/table"
)

// Artifact is the structured output of one action application. Each artifact
// in a state's log is traceable to exactly one prior action.
type Artifact map[string]any

// Constraint is a resolved row predicate accumulated from the question.
type Constraint struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  string `json:"value"`
}

// State is an immutable snapshot of the reasoning process at one search step:
// the current table view, resolved constraints, the memory of intermediate
// variables and evidence, and the step counter. Actions never mutate a State;
// they derive successors through Fork and the With* setters.
type State struct {
	Question    string
	Table       *table.Table // original table, shared and read-only
	View        *table.Table // current derived view
	Constraints []Constraint
	Memory      map[string]any
	// History lists the names of the actions applied from the root to this
	// state, oldest first.
	History []string
	Step    int
	Done    bool
	Answer  any
}

// NewState builds the root state for one question-answering run.
func NewState(question string, t *table.Table) *State {
	return &State{
		Question: question,
		Table:    t,
		View:     t,
		Memory:   map[string]any{},
	}
}

// Fork returns a successor snapshot with its own memory and constraint slices
// and the step counter advanced. The receiver remains valid and unchanged.
func (s *State) Fork() *State {
	memory := make(map[string]any, len(s.Memory))
	for k, v := range s.Memory {
		memory[k] = v
	}
	return &State{
		Question:    s.Question,
		Table:       s.Table,
		View:        s.View,
		Constraints: append([]Constraint(nil), s.Constraints...),
		Memory:      memory,
		History:     append([]string(nil), s.History...),
		Step:        s.Step + 1,
		Done:        s.Done,
		Answer:      s.Answer,
	}
}

// Var reads a memory variable.
func (s *State) Var(key string) (any, bool) {
	v, ok := s.Memory[key]
	return v, ok
}

// NumericVar reads a memory variable as float64.
func (s *State) NumericVar(key string) (float64, bool) {
	switch v := s.Memory[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// NumericVars returns all numeric memory variables.
func (s *State) NumericVars() map[string]float64 {
	out := map[string]float64{}
	for k := range s.Memory {
		if f, ok := s.NumericVar(k); ok {
			out[k] = f
		}
	}
	return out
}

// RowIndices reads a memory variable as a row index list.
func (s *State) RowIndices(key string) ([]int, bool) {
	switch v := s.Memory[key].(type) {
	case []int:
		return v, true
	case []any:
		out := make([]int, 0, len(v))
		for _, x := range v {
			switch n := x.(type) {
			case int:
				out = append(out, n)
			case float64:
				out = append(out, int(n))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// MemoryKeys lists memory keys in unspecified order.
func (s *State) MemoryKeys() []string {
	keys := make([]string, 0, len(s.Memory))
	for k := range s.Memory {
		keys = append(keys, k)
	}
	return keys
}
