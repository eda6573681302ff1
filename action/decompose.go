package action

import (
	"context"
	"fmt"
	"strings"

	"tqa/reasoning"
)

// ParallelDecomposing records independent sub-questions that can be answered
// separately and combined.
type ParallelDecomposing struct{}

func (ParallelDecomposing) Name() string       { return "ParallelDecomposing" }
func (ParallelDecomposing) Category() Category { return CategoryDecomposition }

func (ParallelDecomposing) Feasible(_ *reasoning.State, p Params) bool {
	return len(p.Strings("sub_questions")) > 0
}

func (ParallelDecomposing) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	var subs []string
	for _, q := range p.Strings("sub_questions") {
		if q = strings.TrimSpace(q); q != "" {
			subs = append(subs, q)
		}
	}
	if len(subs) == 0 {
		return nil, nil, infeasible("ParallelDecomposing requires sub_questions")
	}

	next := s.Fork()
	next.Memory[KeyParallelSubQ] = subs

	return next, reasoning.Artifact{
		"out_key": KeyParallelSubQ,
		"count":   len(subs),
	}, nil
}

// SerialStep is one link of a dependent sub-question chain.
type SerialStep struct {
	Question  string `json:"q"`
	DependsOn []int  `json:"depends_on"`
	Var       string `json:"var"`
}

// SerialDecomposing records a chain of dependent sub-questions with explicit
// 0-based dependencies and output variable names.
type SerialDecomposing struct{}

func (SerialDecomposing) Name() string       { return "SerialDecomposing" }
func (SerialDecomposing) Category() Category { return CategoryDecomposition }

func (SerialDecomposing) Feasible(_ *reasoning.State, p Params) bool {
	return len(p.Maps("chain")) > 0
}

func (SerialDecomposing) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	raw := p.Maps("chain")
	if len(raw) == 0 {
		return nil, nil, infeasible("SerialDecomposing requires chain")
	}

	chain := make([]SerialStep, 0, len(raw))
	for i, item := range raw {
		q, _ := item["q"].(string)
		if q = strings.TrimSpace(q); q == "" {
			continue
		}
		step := SerialStep{Question: q, Var: fmt.Sprintf("x%d", i)}
		if v, ok := item["var"].(string); ok && v != "" {
			step.Var = v
		}
		step.DependsOn = Params(item).Ints("depends_on")
		chain = append(chain, step)
	}
	if len(chain) == 0 {
		return nil, nil, infeasible("SerialDecomposing chain had no usable steps")
	}

	next := s.Fork()
	next.Memory[KeySerialSubQ] = chain

	return next, reasoning.Artifact{
		"out_key": KeySerialSubQ,
		"count":   len(chain),
	}, nil
}
