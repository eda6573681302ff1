package searcher

import (
	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"tqa/reasoning"
)

// extractCandidates walks the finished tree, builds one trace per finished
// leaf, deduplicates by action signature and returns the top-K traces ranked
// by mean Q along the root-to-leaf path.
func (m *MCTS) extractCandidates(maxCandidates int) []*reasoning.Trace {
	leaves := collectFinished(m.root)

	bySignature := make(map[string]*reasoning.Trace, len(leaves))
	for _, leaf := range leaves {
		t := buildTrace(leaf)
		prev, seen := bySignature[t.Signature()]
		if !seen || t.Score > prev.Score {
			bySignature[t.Signature()] = t
		}
	}

	candidates := make([]*reasoning.Trace, 0, len(bySignature))
	for _, t := range bySignature {
		candidates = append(candidates, t)
	}
	slices.SortStableFunc(candidates, func(a, b *reasoning.Trace) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		// equal scores: shorter traces first, then signature for stability
		if d := len(a.Steps) - len(b.Steps); d != 0 {
			return d
		}
		if a.Signature() < b.Signature() {
			return -1
		}
		return 1
	})

	if maxCandidates > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}
	return candidates
}

func collectFinished(n *node) []*node {
	n.mu.Lock()
	children := slices.Clone(n.children)
	finished := n.status == statusFinished
	n.mu.Unlock()

	var leaves []*node
	if finished {
		leaves = append(leaves, n)
	}
	for _, child := range children {
		leaves = append(leaves, collectFinished(child)...)
	}
	return leaves
}

// buildTrace assembles the root-to-leaf step sequence and scores the trace
// with the mean Q of the nodes along the path (root excluded).
func buildTrace(leaf *node) *reasoning.Trace {
	var path []*node
	for n := leaf; n.parent != nil; n = n.parent {
		path = append(path, n)
	}
	slices.Reverse(path)

	steps := make([]reasoning.Step, len(path))
	sum := 0.0
	for i, n := range path {
		steps[i] = reasoning.Step{
			Action:   n.actionName,
			Params:   n.params,
			State:    n.state,
			Artifact: n.artifact,
		}
		sum += n.q()
	}

	score := 0.0
	if len(path) > 0 {
		score = sum / float64(len(path))
	}

	return &reasoning.Trace{
		ID:     uuid.NewString(),
		Steps:  steps,
		Answer: leaf.state.Answer,
		Score:  score,
	}
}
