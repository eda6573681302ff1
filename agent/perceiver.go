package agent

import (
	"context"
	"sort"

	"tqa/reasoning"
)

// ContextPerceiver builds a deterministic, compact report of a state.
type ContextPerceiver struct {
	MaxRecentActions int
	MaxMemoryKeys    int
	MaxSampleRows    int
}

func NewContextPerceiver() *ContextPerceiver {
	return &ContextPerceiver{MaxRecentActions: 6, MaxMemoryKeys: 50, MaxSampleRows: 3}
}

func (p *ContextPerceiver) Perceive(_ context.Context, s *reasoning.State) (Report, error) {
	keys := s.MemoryKeys()
	sort.Strings(keys)
	if len(keys) > p.MaxMemoryKeys {
		keys = keys[:p.MaxMemoryKeys]
	}

	recent := s.History
	if len(recent) > p.MaxRecentActions {
		recent = recent[len(recent)-p.MaxRecentActions:]
	}

	sample := s.View.Rows
	if len(sample) > p.MaxSampleRows {
		sample = sample[:p.MaxSampleRows]
	}

	return Report{
		Question:      s.Question,
		Depth:         s.Step,
		Done:          s.Done,
		Headers:       s.View.Headers,
		MemoryKeys:    keys,
		RecentActions: append([]string(nil), recent...),
		NumericVars:   s.NumericVars(),
		RowSample:     sample,
		Constraints:   s.Constraints,
	}, nil
}
