package action

import (
	"context"

	"tqa/reasoning"
)

// Finish terminates a branch, setting the final answer either from a memory
// variable or from a literal carried in the parameters.
type Finish struct{}

func (Finish) Name() string       { return "Finish" }
func (Finish) Category() Category { return CategoryTermination }

func (Finish) Feasible(s *reasoning.State, p Params) bool {
	if s.Done {
		return false
	}
	if key := p.String("answer_from"); key != "" {
		_, ok := s.Var(key)
		return ok
	}
	_, ok := p["literal"]
	return ok
}

func (Finish) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	var answer any
	fromVar := false
	if key := p.String("answer_from"); key != "" {
		v, ok := s.Var(key)
		if !ok {
			return nil, nil, infeasible("answer_from variable %q not in memory", key)
		}
		answer = v
		fromVar = true
	} else if lit, ok := p["literal"]; ok {
		answer = lit
	} else {
		return nil, nil, infeasible("Finish requires answer_from or literal")
	}

	next := s.Fork()
	next.Done = true
	next.Answer = answer

	return next, reasoning.Artifact{
		"answer":       answer,
		"answer_from":  p.String("answer_from"),
		"literal_used": !fromVar,
	}, nil
}
