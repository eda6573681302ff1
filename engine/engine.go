// Package engine wires the full question-answering pipeline: action
// registry, agent roles, tree search and the debate stage.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"tqa/action"
	"tqa/agent"
	"tqa/config"
	"tqa/debate"
	"tqa/llm"
	"tqa/prompt"
	"tqa/reasoning"
	"tqa/searcher"
	"tqa/table"
)

// Result is one answered question.
type Result struct {
	Answer     any
	Score      float64
	Trace      *reasoning.Trace
	Records    []debate.Record
	Candidates int
	Metrics    searcher.Metrics
}

type Engine struct {
	cfg      config.Config
	client   llm.Client
	registry *action.Registry
	prompts  *prompt.Loader
	stage    *debate.Stage
	roles    searcher.Roles
}

type Option func(*Engine)

// WithClient replaces the chat client built from the configuration. Used by
// tests and by callers bringing their own provider.
func WithClient(c llm.Client) Option {
	return func(e *Engine) {
		e.client = c
	}
}

// WithRegistry replaces the default action registry, e.g. to inject
// knowledge providers.
func WithRegistry(r *action.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

func New(cfg config.Config, options ...Option) (*Engine, error) {
	e := &Engine{cfg: cfg}
	for _, option := range options {
		option(e)
	}

	if e.client == nil {
		key := cfg.LLM.APIKey()
		if key == "" {
			return nil, fmt.Errorf("no API key in $%s", cfg.LLM.APIKeyEnv)
		}
		e.client = llm.NewChatClient(key, llm.Options{
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: float32(cfg.LLM.Temperature),
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	}
	if e.registry == nil {
		e.registry = action.NewRegistry()
	}
	e.prompts = prompt.NewLoader(cfg.LLM.PromptDir)

	var evaluator agent.Evaluator
	switch cfg.LLM.Evaluator {
	case "llm":
		evaluator = agent.NewLLMEvaluator(e.client, e.prompts)
	default:
		evaluator = agent.NewHeuristicEvaluator()
	}

	e.roles = searcher.Roles{
		Perceiver: agent.NewContextPerceiver(),
		Planner:   agent.NewLLMPlanner(e.client, e.prompts, cfg.Search.PlannerTopK),
		Executor:  agent.NewRegistryExecutor(),
		Evaluator: evaluator,
	}

	if cfg.Debate.Enabled {
		pack, err := e.prompts.Load("debate")
		if err != nil {
			return nil, fmt.Errorf("load debate prompts: %w", err)
		}
		critics := make([]debate.Critic, cfg.Debate.Critics)
		for i := range critics {
			critics[i] = debate.NewLLMCritic(fmt.Sprintf("critic-%d", i+1), e.client, pack)
		}
		e.stage = debate.NewStage(critics,
			debate.WithCallTimeout(cfg.Debate.CallTimeout.Std()),
			debate.WithVerifier(debate.SimpleVerifier{}))
	} else {
		e.stage = debate.NewStage(nil, debate.WithVerifier(debate.SimpleVerifier{}))
	}

	return e, nil
}

// Answer runs search and selection for one question over one table.
func (e *Engine) Answer(ctx context.Context, question string, t *table.Table) (*Result, error) {
	start := time.Now()
	root := reasoning.NewState(question, t)

	mcts := searcher.NewMCTS(e.roles, e.registry,
		searcher.WithIterations(e.cfg.Search.Iterations),
		searcher.WithGoroutines(e.cfg.Search.Goroutines),
		searcher.WithMaxDepth(e.cfg.Search.MaxDepth),
		searcher.WithMaxTerminals(e.cfg.Search.MaxTerminals),
		searcher.WithRetryBudget(e.cfg.Search.RetryBudget),
		searcher.WithExploration(e.cfg.Search.Exploration),
		searcher.WithCallTimeout(e.cfg.Search.CallTimeout.Std()),
		searcher.WithDefaultScore(e.cfg.Search.DefaultScore),
	)

	candidates, metrics, err := mcts.Run(ctx, root, e.cfg.Search.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	log.Info().
		Int("candidates", len(candidates)).
		Int64("iterations", metrics.Iterations).
		Int64("expansions", metrics.Expansions).
		Int64("terminals", metrics.Terminals).
		Dur("elapsed", metrics.Duration).
		Msg("search complete")

	decision, err := e.stage.Decide(ctx, question, candidates)
	if err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	log.Info().
		Interface("answer", decision.Answer).
		Float64("score", decision.Score).
		Bool("unanimous", decision.Unanimous).
		Str("trace", decision.Trace.Signature()).
		Dur("elapsed", time.Since(start)).
		Msg("answer selected")

	return &Result{
		Answer:     decision.Answer,
		Score:      decision.Score,
		Trace:      decision.Trace,
		Records:    decision.Records,
		Candidates: len(candidates),
		Metrics:    metrics,
	}, nil
}
