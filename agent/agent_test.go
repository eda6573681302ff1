package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"tqa/action"
	"tqa/llm"
	"tqa/prompt"
	"tqa/reasoning"
	"tqa/table"
)

type scriptedClient struct {
	replies []string
	err     error
	calls   int
	lastSys string
	lastUsr string
}

func (c *scriptedClient) Chat(_ context.Context, system, user string) (string, error) {
	c.lastSys, c.lastUsr = system, user
	if c.err != nil {
		return "", c.err
	}
	reply := c.replies[len(c.replies)-1]
	if c.calls < len(c.replies) {
		reply = c.replies[c.calls]
	}
	c.calls++
	return reply, nil
}

func testState() *reasoning.State {
	tbl := table.New(
		[]string{"Item", "Planned Cost", "Actual Cost"},
		[][]string{
			{"venue", "1,500", "1,800"},
			{"catering", "3,000", "2,750"},
			{"band", "800", "800"},
			{"flowers", "na", "120"},
		},
	)
	return reasoning.NewState("what was the total actual cost?", tbl)
}

func TestContextPerceiver(t *testing.T) {
	p := NewContextPerceiver()
	s := testState()
	s.Memory["zed"] = 1
	s.Memory["alpha"] = 2.0
	s.History = []string{"a", "b", "c", "d", "e", "f", "g"}

	report, err := p.Perceive(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, s.Question, report.Question)
	require.Equal(t, []string{"alpha", "zed"}, report.MemoryKeys, "Memory keys should be sorted")
	require.Equal(t, []string{"b", "c", "d", "e", "f", "g"}, report.RecentActions, "History should be capped to the most recent")
	require.Len(t, report.RowSample, 3, "Row sample should be capped")
	require.Equal(t, map[string]float64{"zed": 1, "alpha": 2}, report.NumericVars)
}

func TestLLMPlanner(t *testing.T) {
	feasible := []string{"ColumnLocating", "Computing", "Finish"}
	loader := prompt.NewLoader("")

	t.Run("keeps only feasible proposals in rank order", func(t *testing.T) {
		client := &scriptedClient{replies: []string{`{"proposals":[
			{"action":"Computing","params":{"mode":"agg","agg":"sum","column":"actual cost"}},
			{"action":"Teleport","params":{}},
			{"action":"Finish","params":{"answer_from":"result"}}
		]}`}}
		planner := NewLLMPlanner(client, loader, 3)

		got, err := planner.Plan(context.Background(), Report{Question: "q"}, feasible)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, "Computing", got[0].Action)
		require.Equal(t, "sum", got[0].Params.String("agg"))
		require.Equal(t, "Finish", got[1].Action)
	})

	t.Run("truncates to topk", func(t *testing.T) {
		client := &scriptedClient{replies: []string{`{"proposals":[
			{"action":"ColumnLocating"},{"action":"Computing"},{"action":"Finish"}
		]}`}}
		planner := NewLLMPlanner(client, loader, 2)

		got, err := planner.Plan(context.Background(), Report{}, feasible)
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.NotNil(t, got[0].Params, "Missing params should decode to an empty map")
	})

	t.Run("retries on malformed output", func(t *testing.T) {
		client := &scriptedClient{replies: []string{
			"sure, here is my plan",
			`{"proposals":[{"action":"Finish","params":{"literal":"x"}}]}`,
		}}
		planner := NewLLMPlanner(client, loader, 3)

		got, err := planner.Plan(context.Background(), Report{}, feasible)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.Equal(t, 2, client.calls)
	})

	t.Run("no feasible proposal is a parse failure", func(t *testing.T) {
		client := &scriptedClient{replies: []string{`{"proposals":[{"action":"Teleport"}]}`}}
		planner := NewLLMPlanner(client, loader, 3)

		_, err := planner.Plan(context.Background(), Report{}, feasible)
		require.ErrorIs(t, err, llm.ErrParse)
	})

	t.Run("request error propagates", func(t *testing.T) {
		client := &scriptedClient{err: errors.New("connection refused")}
		planner := NewLLMPlanner(client, loader, 3)

		_, err := planner.Plan(context.Background(), Report{}, feasible)
		require.Error(t, err)
	})
}

func TestRegistryExecutor(t *testing.T) {
	e := NewRegistryExecutor()
	s := testState()

	next, artifact, err := e.Execute(context.Background(), s, action.Finish{}, action.Params{"literal": "800"})
	require.NoError(t, err)
	require.True(t, next.Done)
	require.Equal(t, []string{"Finish"}, next.History, "Executor should stamp the action name")
	require.Equal(t, "800", artifact["answer"])
	require.Empty(t, s.History)

	_, _, err = e.Execute(context.Background(), s, action.Finish{}, action.Params{})
	require.ErrorIs(t, err, action.ErrInfeasible)
}

func TestHeuristicEvaluator(t *testing.T) {
	e := NewHeuristicEvaluator()

	t.Run("progress raises the score", func(t *testing.T) {
		s := testState()
		base, err := e.Evaluate(context.Background(), s, nil)
		require.NoError(t, err)

		s.Memory[action.KeyHeaderInfo] = map[string]any{}
		s.Memory[action.KeyLocatedColumns] = []action.ColumnMatch{}
		withProgress, err := e.Evaluate(context.Background(), s, nil)
		require.NoError(t, err)
		require.Greater(t, withProgress, base)
	})

	t.Run("depth discounts", func(t *testing.T) {
		shallow := testState()
		shallow.Memory[action.KeyHeaderInfo] = map[string]any{}
		shallow.Memory[action.KeyLocatedColumns] = []action.ColumnMatch{}
		deep := testState()
		deep.Memory[action.KeyHeaderInfo] = map[string]any{}
		deep.Memory[action.KeyLocatedColumns] = []action.ColumnMatch{}
		deep.Step = 20
		a, _ := e.Evaluate(context.Background(), shallow, nil)
		b, _ := e.Evaluate(context.Background(), deep, nil)
		require.Greater(t, a, b, "same progress at greater depth should score lower")
		require.Greater(t, b, 0.0, "depth penalty should not clamp progress away entirely")
	})

	t.Run("numeric terminal for numeric question", func(t *testing.T) {
		s := testState()
		s.Done = true
		s.Answer = 5470.0
		v, err := e.Evaluate(context.Background(), s, nil)
		require.NoError(t, err)
		require.Equal(t, 0.8, v)
	})

	t.Run("non-numeric terminal for numeric question", func(t *testing.T) {
		s := testState()
		s.Done = true
		s.Answer = "a lot"
		v, _ := e.Evaluate(context.Background(), s, nil)
		require.Equal(t, 0.1, v)
	})

	t.Run("empty answer", func(t *testing.T) {
		s := testState()
		s.Question = "which item was cheapest?"
		s.Done = true
		s.Answer = ""
		v, _ := e.Evaluate(context.Background(), s, nil)
		require.Equal(t, 0.1, v)
	})

	t.Run("text answer for text question", func(t *testing.T) {
		s := testState()
		s.Question = "which item was cheapest?"
		s.Done = true
		s.Answer = "band"
		v, _ := e.Evaluate(context.Background(), s, nil)
		require.Equal(t, 0.6, v)
	})
}

func TestLLMEvaluator(t *testing.T) {
	loader := prompt.NewLoader("")

	t.Run("refines with model score", func(t *testing.T) {
		client := &scriptedClient{replies: []string{`{"score": 0.9, "critique": "solid"}`}}
		e := NewLLMEvaluator(client, loader)
		s := testState()
		v, err := e.Evaluate(context.Background(), s, reasoning.Artifact{"value": 5470.0})
		require.NoError(t, err)
		require.Equal(t, 0.9, v)
	})

	t.Run("falls back to heuristic on failure", func(t *testing.T) {
		client := &scriptedClient{err: errors.New("timeout")}
		e := NewLLMEvaluator(client, loader)
		s := testState()
		want, _ := e.Base.Evaluate(context.Background(), s, nil)
		v, err := e.Evaluate(context.Background(), s, nil)
		require.NoError(t, err, "Evaluator should never fail the engine")
		require.Equal(t, want, v)
	})

	t.Run("clamps out-of-range scores", func(t *testing.T) {
		client := &scriptedClient{replies: []string{`{"score": 3.5}`}}
		e := NewLLMEvaluator(client, loader)
		v, err := e.Evaluate(context.Background(), testState(), nil)
		require.NoError(t, err)
		require.Equal(t, 1.0, v)
	})
}

func TestQuestionWantsNumber(t *testing.T) {
	require.True(t, QuestionWantsNumber("How many guests attended?"))
	require.True(t, QuestionWantsNumber("what was the TOTAL?"))
	require.False(t, QuestionWantsNumber("which item was cheapest?"))
}
