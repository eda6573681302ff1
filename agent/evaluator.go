package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"tqa/action"
	"tqa/llm"
	"tqa/prompt"
	"tqa/reasoning"
)

var wantsNumberCues = []string{"how many", "total", "sum", "average", "amount", "cost", "number"}

// QuestionWantsNumber reports whether a question is asking for a numeric
// answer, by cue words.
func QuestionWantsNumber(question string) bool {
	q := strings.ToLower(question)
	for _, cue := range wantsNumberCues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}

// HeuristicEvaluator scores states deterministically in [0, 1] from progress
// features: resolved headers, located columns/rows, accumulated numeric
// variables and a candidate answer, discounted by path length.
type HeuristicEvaluator struct{}

func NewHeuristicEvaluator() *HeuristicEvaluator { return &HeuristicEvaluator{} }

func (e *HeuristicEvaluator) Evaluate(_ context.Context, s *reasoning.State, _ reasoning.Artifact) (float64, error) {
	if s.Done {
		return e.terminalValue(s), nil
	}
	return e.processValue(s), nil
}

func (e *HeuristicEvaluator) processValue(s *reasoning.State) float64 {
	has := func(key string) float64 {
		if _, ok := s.Memory[key]; ok {
			return 1
		}
		return 0
	}

	numericVars := float64(len(s.NumericVars()))
	if numericVars > 10 {
		numericVars = 10
	}
	steps := float64(s.Step)
	if steps > 30 {
		steps = 30
	}

	v := 0.20*has(action.KeyHeaderInfo) +
		0.25*has(action.KeyLocatedColumns) +
		0.20*has(action.KeyLocatedRows) +
		0.25*(numericVars/10) +
		0.20*has(action.KeyResult) -
		0.15*(steps/30)
	return clamp01(v)
}

func (e *HeuristicEvaluator) terminalValue(s *reasoning.State) float64 {
	answer := strings.TrimSpace(fmt.Sprintf("%v", s.Answer))
	_, numeric := action.ParseNumber(answer)

	if QuestionWantsNumber(s.Question) {
		if numeric {
			return 0.8
		}
		return 0.1
	}
	if answer == "" || answer == "<nil>" {
		return 0.1
	}
	return 0.6
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LLMEvaluator refines the heuristic base score with a model judgment. A
// failed or malformed model call falls back to the base score, so this
// evaluator itself never fails the engine.
type LLMEvaluator struct {
	Client  llm.Client
	Prompts *prompt.Loader
	Base    *HeuristicEvaluator
	Retries int
}

func NewLLMEvaluator(client llm.Client, prompts *prompt.Loader) *LLMEvaluator {
	return &LLMEvaluator{Client: client, Prompts: prompts, Base: NewHeuristicEvaluator(), Retries: 1}
}

type evalOutput struct {
	Score    float64 `json:"score"`
	Critique string  `json:"critique"`
}

func (e *LLMEvaluator) Evaluate(ctx context.Context, s *reasoning.State, artifact reasoning.Artifact) (float64, error) {
	base, _ := e.Base.Evaluate(ctx, s, artifact)

	pack, err := e.Prompts.Load("evaluation")
	if err != nil {
		return base, nil
	}
	artifactJSON, _ := json.Marshal(artifact)
	rendered := pack.Render(map[string]string{
		"question":    s.Question,
		"headers":     strings.Join(s.View.Headers, ", "),
		"terminal":    strconv.FormatBool(s.Done),
		"hint":        strconv.FormatFloat(base, 'f', 3, 64),
		"memory_keys": strings.Join(s.MemoryKeys(), ", "),
		"artifact":    string(artifactJSON),
	})

	var out evalOutput
	if err := llm.ChatJSON(ctx, e.Client, rendered.System, rendered.User, e.Retries, &out); err != nil {
		log.Debug().Err(err).Msg("evaluation refinement failed, using heuristic base")
		return base, nil
	}
	return clamp01(out.Score), nil
}
