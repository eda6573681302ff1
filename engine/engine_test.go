package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tqa/config"
	"tqa/table"
)

// routerClient plays every model role in the pipeline: it answers planning
// calls with the next step of a fixed recipe (keyed off the memory keys in
// the context report) and debate calls with a fixed judgment.
type routerClient struct{}

func (routerClient) Chat(_ context.Context, system, user string) (string, error) {
	if strings.Contains(system, "judge") {
		return `{"correctness": 0.9, "completeness": 0.8, "support": 0.85, "critique": "clean arithmetic"}`, nil
	}

	switch {
	case !strings.Contains(user, "planned_total"):
		return `{"proposals": [{"action": "Computing", "params": {
			"mode": "agg", "agg": "sum", "column": "planned cost", "out_var": "planned_total"
		}}]}`, nil
	case !strings.Contains(user, "actual_total"):
		return `{"proposals": [{"action": "Computing", "params": {
			"mode": "agg", "agg": "sum", "column": "actual cost", "out_var": "actual_total"
		}}]}`, nil
	case !strings.Contains(user, "result"):
		return `{"proposals": [{"action": "Computing", "params": {
			"mode": "expr", "expr": "planned_total + actual_total"
		}}]}`, nil
	default:
		return `{"proposals": [{"action": "Finish", "params": {"answer_from": "result"}}]}`, nil
	}
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Search.Iterations = 8
	cfg.Search.Goroutines = 1
	cfg.Search.MaxDepth = 6
	cfg.Search.MaxTerminals = 1
	cfg.Debate.Critics = 2
	return cfg
}

func budgetTable() *table.Table {
	return table.New(
		[]string{"Item", "Planned Cost", "Actual Cost"},
		[][]string{
			{"venue", "1,500", "1,800"},
			{"catering", "3,000", "2,750"},
			{"band", "800", "800"},
		},
	)
}

func TestAnswerEndToEnd(t *testing.T) {
	eng, err := New(testConfig(), WithClient(routerClient{}))
	require.NoError(t, err)

	result, err := eng.Answer(context.Background(), "what is the total planned plus actual cost?", budgetTable())
	require.NoError(t, err)
	require.InDelta(t, 10650.0, result.Answer.(float64), 1e-9)
	require.Equal(t, "Computing>Computing>Computing>Finish", result.Trace.Signature())
	require.Equal(t, 1, result.Candidates)
	require.Len(t, result.Records, 2, "Both critics should have judged the winner")
	require.InDelta(t, 0.85, result.Score, 1e-9, "Score should be the mean of the critic sub-scores")
	require.Equal(t, int64(1), result.Metrics.Terminals)
}

func TestAnswerWithoutDebate(t *testing.T) {
	cfg := testConfig()
	cfg.Debate.Enabled = false

	eng, err := New(cfg, WithClient(routerClient{}))
	require.NoError(t, err)

	result, err := eng.Answer(context.Background(), "what is the total planned plus actual cost?", budgetTable())
	require.NoError(t, err)
	require.InDelta(t, 10650.0, result.Answer.(float64), 1e-9)
	require.Empty(t, result.Records)
}

func TestNewRequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.APIKeyEnv = "TQA_DEFINITELY_UNSET_KEY"

	_, err := New(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}

func TestNewBuildsClientFromConfig(t *testing.T) {
	t.Setenv("TQA_TEST_API_KEY", "sk-test")
	cfg := testConfig()
	cfg.LLM.APIKeyEnv = "TQA_TEST_API_KEY"
	cfg.LLM.Temperature = 0.2

	e, err := New(cfg)
	require.NoError(t, err, "A keyed config should wire a chat client without injection")
	require.NotNil(t, e)
}
