package agent

import (
	"context"
	"fmt"

	"tqa/action"
	"tqa/reasoning"
)

// RegistryExecutor applies registry actions deterministically and stamps the
// action name onto the successor's history.
type RegistryExecutor struct{}

func NewRegistryExecutor() *RegistryExecutor { return &RegistryExecutor{} }

func (RegistryExecutor) Execute(ctx context.Context, s *reasoning.State, act action.Action, p action.Params) (*reasoning.State, reasoning.Artifact, error) {
	next, artifact, err := act.Apply(ctx, s, p)
	if err != nil {
		return nil, nil, fmt.Errorf("apply %s: %w", act.Name(), err)
	}
	// next is unpublished until returned; the history stamp happens before
	// anyone else can observe it.
	next.History = append(next.History, act.Name())
	return next, artifact, nil
}
