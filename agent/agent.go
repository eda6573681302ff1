// Package agent defines the four role contracts the search loop consumes
// (Perceive, Plan, Execute, Evaluate) plus the built-in implementations.
// Each role is a pure request/response boundary: no shared mutable state
// between calls, and implementations are swappable at wiring time.
package agent

import (
	"context"

	"tqa/action"
	"tqa/reasoning"
)

// Report is the structured context summary handed to the planner.
type Report struct {
	Question      string                 `json:"question"`
	Depth         int                    `json:"depth"`
	Done          bool                   `json:"done"`
	Headers       []string               `json:"headers"`
	MemoryKeys    []string               `json:"memory_keys"`
	RecentActions []string               `json:"recent_actions"`
	NumericVars   map[string]float64     `json:"numeric_vars,omitempty"`
	RowSample     [][]string             `json:"row_sample,omitempty"`
	Constraints   []reasoning.Constraint `json:"constraints,omitempty"`
}

// Proposal is one planned next step: an action name plus its parameters.
type Proposal struct {
	Action string        `json:"action"`
	Params action.Params `json:"params"`
}

// Perceiver produces a context report for a state. Must not mutate the state.
type Perceiver interface {
	Perceive(ctx context.Context, s *reasoning.State) (Report, error)
}

// Planner proposes ranked next actions, choosing only from the feasible set.
// The engine re-validates feasibility before use.
type Planner interface {
	Plan(ctx context.Context, report Report, feasible []string) ([]Proposal, error)
}

// Executor applies one action to a state, producing the successor state and
// artifact, or an explicit failure.
type Executor interface {
	Execute(ctx context.Context, s *reasoning.State, act action.Action, p action.Params) (*reasoning.State, reasoning.Artifact, error)
}

// Evaluator scores a freshly produced state in [0, 1]. A failure is reported
// explicitly; the engine substitutes the configured default score.
type Evaluator interface {
	Evaluate(ctx context.Context, s *reasoning.State, artifact reasoning.Artifact) (float64, error)
}
