package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tqa/llm"
	"tqa/prompt"
)

// LLMPlanner asks a language model for ranked next-action proposals.
type LLMPlanner struct {
	Client  llm.Client
	Prompts *prompt.Loader
	TopK    int
	Retries int
}

func NewLLMPlanner(client llm.Client, prompts *prompt.Loader, topK int) *LLMPlanner {
	if topK <= 0 {
		topK = 5
	}
	return &LLMPlanner{Client: client, Prompts: prompts, TopK: topK, Retries: 2}
}

type plannerOutput struct {
	Proposals []struct {
		Action string         `json:"action"`
		Params map[string]any `json:"params"`
	} `json:"proposals"`
}

func (p *LLMPlanner) Plan(ctx context.Context, report Report, feasible []string) ([]Proposal, error) {
	pack, err := p.Prompts.Load("planning")
	if err != nil {
		return nil, err
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal context report: %w", err)
	}
	rendered := pack.Render(map[string]string{
		"question":         report.Question,
		"feasible_actions": strings.Join(feasible, ", "),
		"report":           string(reportJSON),
		"topk":             strconv.Itoa(p.TopK),
	})

	var out plannerOutput
	if err := llm.ChatJSON(ctx, p.Client, rendered.System, rendered.User, p.Retries, &out); err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(feasible))
	for _, name := range feasible {
		allowed[name] = true
	}

	proposals := make([]Proposal, 0, len(out.Proposals))
	for _, raw := range out.Proposals {
		if !allowed[raw.Action] {
			continue
		}
		params := raw.Params
		if params == nil {
			params = map[string]any{}
		}
		proposals = append(proposals, Proposal{Action: raw.Action, Params: params})
		if len(proposals) == p.TopK {
			break
		}
	}
	if len(proposals) == 0 {
		return nil, fmt.Errorf("%w: planner proposed no feasible action", llm.ErrParse)
	}
	return proposals, nil
}
