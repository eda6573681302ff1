package debate

import (
	"context"
	"fmt"

	"tqa/llm"
	"tqa/prompt"
	"tqa/reasoning"
)

const traceSummaryChars = 4000

// LLMCritic judges traces with a chat model. Distinct critics on one panel
// share prompts but may run different models or temperatures, which is what
// keeps their judgments independent.
type LLMCritic struct {
	name    string
	client  llm.Client
	prompts prompt.Pack
	retries int
}

func NewLLMCritic(name string, client llm.Client, prompts prompt.Pack) *LLMCritic {
	return &LLMCritic{
		name:    name,
		client:  client,
		prompts: prompts,
		retries: 2,
	}
}

func (c *LLMCritic) Name() string { return c.name }

type criticOutput struct {
	Correctness  float64 `json:"correctness"`
	Completeness float64 `json:"completeness"`
	Support      float64 `json:"support"`
	Critique     string  `json:"critique"`
}

func (c *LLMCritic) Judge(ctx context.Context, question string, trace *reasoning.Trace) (Record, error) {
	rendered := c.prompts.Render(map[string]string{
		"question": question,
		"trace":    trace.Summary(traceSummaryChars),
	})

	var out criticOutput
	if err := llm.ChatJSON(ctx, c.client, rendered.System, rendered.User, c.retries, &out); err != nil {
		return Record{}, fmt.Errorf("critic %s: %w", c.name, err)
	}

	return Record{
		Critic:       c.name,
		Correctness:  out.Correctness,
		Completeness: out.Completeness,
		Support:      out.Support,
		Critique:     out.Critique,
	}, nil
}
