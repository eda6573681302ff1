package searcher

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"tqa/action"
	"tqa/agent"
	"tqa/reasoning"
)

type nodeStatus int

const (
	statusUnexpanded nodeStatus = iota
	statusExpanded
	statusFinished // Finish applied: candidate answer recorded
	statusDepthCapped
	statusFailed // retry budgets exhausted
)

// node is one search-tree node. Children are owned exclusively by their
// parent; the parent link is used only for backpropagation traversal. All
// mutable search statistics are scoped to the tree holding the node, whose
// lifetime is exactly one question-answering run.
type node struct {
	mu sync.Mutex

	id     string
	parent *node
	depth  int

	// step that produced this node; zero values at root
	actionName string
	params     action.Params
	artifact   reasoning.Artifact

	state *reasoning.State

	// planner output, fetched once on the node's first expansion visit
	planned      bool
	proposals    []agent.Proposal
	nextProposal int
	failures     int

	children []*node

	visits  int
	rewards float64
	status  nodeStatus

	// score backpropagated again when this terminal node is re-selected
	terminalScore float64
}

func newNode(parent *node, state *reasoning.State) *node {
	depth := 0
	if parent != nil {
		depth = parent.depth + 1
	}
	return &node{
		id:     uuid.NewString(),
		parent: parent,
		depth:  depth,
		state:  state,
	}
}

func (n *node) terminal() bool {
	switch n.status {
	case statusFinished, statusDepthCapped, statusFailed:
		return true
	}
	return false
}

// applyLoss adds a temporary virtual loss so concurrent simulations spread
// out instead of racing down the identical best-looking path.
func (n *node) applyLoss() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visits++
}

// backup reverses this node's virtual loss (the root never had one applied),
// records the simulation outcome, and returns the parent for traversal.
func (n *node) backup(score float64) *node {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.parent != nil {
		n.visits-- // reverse virtual loss
	}
	n.visits++
	n.rewards += score

	return n.parent
}

// q is the node's mean value estimate W/N.
func (n *node) q() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.visits == 0 {
		return 0
	}
	return n.rewards / float64(n.visits)
}

func (n *node) score(normalizer float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	return ucb1(n.rewards, n.visits, normalizer)
}

// pickChild returns the index of the child maximizing UCB1. Ties break to
// the earliest-created child, keeping selection stable across runs.
func (n *node) pickChild(exploration float64) int {
	normalizer := exploration * exploration * math.Log(float64(n.visits))

	maxIndex := -1
	maxScore := math.Inf(-1)
	for i, child := range n.children {
		s := child.score(normalizer)
		if s == math.Inf(1) {
			return i
		}
		if s > maxScore {
			maxScore = s
			maxIndex = i
		}
	}
	return maxIndex
}

// ucb1 computes Q + sqrt(c^2 * ln(N) / n), prioritizing unexplored nodes.
func ucb1(rewards float64, visits int, normalizer float64) float64 {
	if visits == 0 {
		return math.Inf(1)
	}
	return rewards/float64(visits) + math.Sqrt(normalizer/float64(visits))
}
