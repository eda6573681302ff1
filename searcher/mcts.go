// Package searcher grows a reasoning tree with Monte Carlo Tree Search.
// Each simulation descends by UCB1, expands one planner proposal, scores the
// resulting state, and backpropagates the score to the root.
package searcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"tqa/action"
	"tqa/agent"
	"tqa/reasoning"
)

// Roles bundles the four collaborator contracts one search consumes.
type Roles struct {
	Perceiver agent.Perceiver
	Planner   agent.Planner
	Executor  agent.Executor
	Evaluator agent.Evaluator
}

type MCTS struct {
	roles    Roles
	registry *action.Registry

	goroutines   int
	iterations   int
	maxDepth     int
	maxTerminals int
	retryBudget  int
	exploration  float64
	callTimeout  time.Duration
	defaultScore float64

	metrics *Collector

	root      *node
	terminals atomic.Int64
}

type Option func(*MCTS)

func WithGoroutines(goroutines int) Option {
	return func(m *MCTS) {
		if goroutines > 0 {
			m.goroutines = goroutines
		}
	}
}

func WithIterations(iterations int) Option {
	return func(m *MCTS) {
		if iterations >= 0 {
			m.iterations = iterations
		}
	}
}

func WithMaxDepth(depth int) Option {
	return func(m *MCTS) {
		if depth > 0 {
			m.maxDepth = depth
		}
	}
}

// WithMaxTerminals stops the search early once that many successful terminal
// branches exist. Zero disables the early stop.
func WithMaxTerminals(n int) Option {
	return func(m *MCTS) {
		if n >= 0 {
			m.maxTerminals = n
		}
	}
}

func WithRetryBudget(budget int) Option {
	return func(m *MCTS) {
		if budget >= 0 {
			m.retryBudget = budget
		}
	}
}

func WithExploration(c float64) Option {
	return func(m *MCTS) {
		if c > 0 {
			m.exploration = c
		}
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(m *MCTS) {
		if d > 0 {
			m.callTimeout = d
		}
	}
}

// WithDefaultScore sets the score substituted on evaluation failure and
// backpropagated through failed branches.
func WithDefaultScore(score float64) Option {
	return func(m *MCTS) {
		m.defaultScore = score
	}
}

func NewMCTS(roles Roles, registry *action.Registry, options ...Option) *MCTS {
	m := &MCTS{
		roles:       roles,
		registry:    registry,
		goroutines:  1,
		iterations:  64,
		maxDepth:    12,
		retryBudget: 2,
		exploration: 1.4,
		metrics:     NewCollector(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// Run grows the tree for the configured iteration budget and extracts the
// top-K candidate traces. The tree is discarded when Run returns.
func (m *MCTS) Run(ctx context.Context, root *reasoning.State, maxCandidates int) ([]*reasoning.Trace, Metrics, error) {
	m.root = newNode(nil, root)
	m.terminals.Store(0)
	m.metrics.Start()

	m.iterate(ctx)

	metrics := m.metrics.Complete()

	candidates := m.extractCandidates(maxCandidates)
	if len(candidates) == 0 {
		return nil, metrics, reasoning.ErrNoCandidates
	}
	return candidates, metrics, nil
}

// iterate distributes the iteration budget over worker goroutines.
func (m *MCTS) iterate(ctx context.Context) {
	task := make(chan struct{}, m.iterations)
	for i := 0; i < m.iterations; i++ {
		task <- struct{}{}
	}
	close(task)

	var wg sync.WaitGroup
	for i := 0; i < m.goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range task {
				if ctx.Err() != nil {
					return
				}
				if m.maxTerminals > 0 && m.terminals.Load() >= int64(m.maxTerminals) {
					return
				}
				m.simulate(ctx)
				m.metrics.AddIteration()
			}
		}()
	}
	wg.Wait()
}

// simulate runs one selection/expansion/evaluation/backpropagation episode.
func (m *MCTS) simulate(ctx context.Context) {
	n := m.root
	for {
		n.mu.Lock()

		if n.terminal() {
			score := n.terminalScore
			n.mu.Unlock()
			backprop(n, score)
			return
		}

		if !n.planned {
			m.planNode(ctx, n)
			if n.status == statusFailed {
				score := n.terminalScore
				n.mu.Unlock()
				backprop(n, score)
				return
			}
		}

		if n.nextProposal < len(n.proposals) {
			child, score, ok := m.expandNode(ctx, n)
			if ok {
				child.applyLoss()
				n.status = statusExpanded
				n.mu.Unlock()
				backprop(child, score)
				return
			}
			if n.status == statusFailed {
				score := n.terminalScore
				n.mu.Unlock()
				backprop(n, score)
				return
			}
			// all remaining proposals burned; fall through to selection
		}

		if len(n.children) == 0 {
			n.status = statusFailed
			n.terminalScore = m.defaultScore
			log.Warn().Str("node", n.id).Msg("node has no children and no viable proposals")
			n.mu.Unlock()
			backprop(n, m.defaultScore)
			return
		}

		child := n.children[n.pickChild(m.exploration)]
		child.applyLoss()
		n.mu.Unlock()
		n = child
	}
}

// planNode fetches the node's ranked proposals: Perceive once, then Plan
// within the retry budget, keeping only proposals that resolve and pass
// feasibility. Called with n.mu held.
func (m *MCTS) planNode(ctx context.Context, n *node) {
	n.planned = true

	report, err := m.callPerceive(ctx, n.state)
	if err != nil {
		log.Warn().Err(err).Str("node", n.id).Msg("perceive failed")
		n.status = statusFailed
		n.terminalScore = m.defaultScore
		return
	}

	feasible := m.feasibleNames(n.state)
	if len(feasible) == 0 {
		n.status = statusFailed
		n.terminalScore = m.defaultScore
		log.Warn().Str("node", n.id).Msg("no feasible actions for state")
		return
	}

	for attempt := 0; attempt <= m.retryBudget; attempt++ {
		proposals, err := m.callPlan(ctx, report, feasible)
		if err != nil {
			m.metrics.AddPlanFailure()
			log.Debug().Err(err).Str("node", n.id).Int("attempt", attempt+1).Msg("plan attempt failed")
			continue
		}

		kept := proposals[:0]
		for _, prop := range proposals {
			act, err := m.registry.Resolve(prop.Action)
			if err != nil || !m.registry.Feasible(act, n.state, prop.Params) {
				m.metrics.AddInfeasible()
				log.Debug().Str("node", n.id).Str("action", prop.Action).Int("attempt", attempt+1).
					Msg("proposal rejected as infeasible")
				continue
			}
			kept = append(kept, prop)
		}
		if len(kept) > 0 {
			n.proposals = kept
			return
		}
	}

	n.status = statusFailed
	n.terminalScore = m.defaultScore
	log.Warn().Str("node", n.id).Int("budget", m.retryBudget).Msg("planning budget exhausted, branch terminated")
}

// feasibleNames lists actions whose category-level preconditions can hold for
// the state. Parameter-dependent feasibility is re-checked per proposal.
func (m *MCTS) feasibleNames(s *reasoning.State) []string {
	if s.Done {
		return nil
	}
	return m.registry.Names()
}

// expandNode tries the node's untried proposals in rank order until one
// executes, creating and scoring the new child. Execution failures consume
// the shared retry budget; exhausting it with no children marks the branch
// failed. Called with n.mu held; reports ok=false when nothing was expanded.
func (m *MCTS) expandNode(ctx context.Context, n *node) (*node, float64, bool) {
	for n.nextProposal < len(n.proposals) {
		if n.failures > m.retryBudget {
			break
		}

		prop := n.proposals[n.nextProposal]
		n.nextProposal++

		act, err := m.registry.Resolve(prop.Action)
		if err != nil || !m.registry.Feasible(act, n.state, prop.Params) {
			n.failures++
			m.metrics.AddInfeasible()
			continue
		}

		newState, artifact, err := m.callExecute(ctx, n.state, act, prop.Params)
		if err != nil {
			n.failures++
			m.metrics.AddExecFailure()
			log.Debug().Err(err).Str("node", n.id).Str("action", prop.Action).
				Int("attempt", n.failures).Msg("execution failed")
			continue
		}

		child := newNode(n, newState)
		child.actionName = prop.Action
		child.params = prop.Params
		child.artifact = artifact

		score := m.callEvaluate(ctx, newState, artifact)

		switch {
		case newState.Done:
			child.status = statusFinished
			child.terminalScore = score
			m.terminals.Add(1)
			m.metrics.AddTerminal()
		case child.depth >= m.maxDepth:
			child.status = statusDepthCapped
			child.terminalScore = score
		}

		n.children = append(n.children, child)
		m.metrics.AddExpansion()
		return child, score, true
	}

	if len(n.children) == 0 {
		n.status = statusFailed
		n.terminalScore = m.defaultScore
		log.Warn().Str("node", n.id).Int("failures", n.failures).
			Msg("expansion budget exhausted, branch terminated")
	} else {
		// no further expansion; select among existing children from now on
		n.proposals = n.proposals[:n.nextProposal]
	}
	return nil, 0, false
}

func (m *MCTS) callPerceive(ctx context.Context, s *reasoning.State) (agent.Report, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.roles.Perceiver.Perceive(ctx, s)
}

func (m *MCTS) callPlan(ctx context.Context, report agent.Report, feasible []string) ([]agent.Proposal, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.roles.Planner.Plan(ctx, report, feasible)
}

func (m *MCTS) callExecute(ctx context.Context, s *reasoning.State, act action.Action, p action.Params) (*reasoning.State, reasoning.Artifact, error) {
	ctx, cancel := m.callContext(ctx)
	defer cancel()
	return m.roles.Executor.Execute(ctx, s, act, p)
}

// callEvaluate substitutes the configured default score on failure; scoring
// problems never fail the engine.
func (m *MCTS) callEvaluate(ctx context.Context, s *reasoning.State, artifact reasoning.Artifact) float64 {
	ctx, cancel := m.callContext(ctx)
	defer cancel()

	score, err := m.roles.Evaluator.Evaluate(ctx, s, artifact)
	if err != nil {
		m.metrics.AddEvalFailure()
		log.Debug().Err(err).Msg("evaluation failed, substituting default score")
		return m.defaultScore
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

func (m *MCTS) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.callTimeout)
}

func backprop(n *node, score float64) {
	for n != nil {
		n = n.backup(score)
	}
}
