package action

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderParsing(t *testing.T) {
	s := budgetState()
	a := HeaderParsing{}
	require.True(t, a.Feasible(s, nil))

	next, artifact, err := a.Apply(context.Background(), s, Params{
		"aliases": map[string]any{"budget": "Planned Cost"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, next.Step)
	require.Equal(t, KeyHeaderInfo, artifact["out_key"])
	require.Equal(t, 3, artifact["num_headers"])

	info, ok := next.Memory[KeyHeaderInfo].(map[string]any)
	require.True(t, ok)
	require.Equal(t, []string{"item", "planned cost", "actual cost"}, info["normalized_headers"])

	_, ok = s.Var(KeyHeaderInfo)
	require.False(t, ok, "Input state should stay unchanged")
}

func TestHeaderParsingSplitsCompounds(t *testing.T) {
	tbl := budgetTable()
	tbl.Headers[1] = "Planned/Unit Cost"
	s := budgetState()
	s.View = tbl
	s.Table = tbl

	next, _, err := HeaderParsing{}.Apply(context.Background(), s, nil)
	require.NoError(t, err)

	info := next.Memory[KeyHeaderInfo].(map[string]any)
	compounds := info["compound_splits"].(map[string][]string)
	require.Equal(t, []string{"Planned", "Unit Cost"}, compounds["Planned/Unit Cost"])
}

func TestColumnLocating(t *testing.T) {
	a := ColumnLocating{}

	t.Run("soft match resolves partial names", func(t *testing.T) {
		s := budgetState()
		next, artifact, err := a.Apply(context.Background(), s, Params{
			"targets": []any{"planned", "actual cost"},
		})
		require.NoError(t, err)
		require.Equal(t, KeyLocatedColumns, artifact["out_key"])

		matches := next.Memory[KeyLocatedColumns].([]ColumnMatch)
		require.Len(t, matches, 2)
		require.Equal(t, ColumnMatch{Target: "planned", Matched: "Planned Cost", Col: 1}, matches[0])
		require.Equal(t, ColumnMatch{Target: "actual cost", Matched: "Actual Cost", Col: 2}, matches[1])
	})

	t.Run("exact mode reports misses", func(t *testing.T) {
		s := budgetState()
		next, _, err := a.Apply(context.Background(), s, Params{
			"targets": []any{"planned"},
			"mode":    "exact",
		})
		require.NoError(t, err)
		matches := next.Memory[KeyLocatedColumns].([]ColumnMatch)
		require.Equal(t, -1, matches[0].Col, "Exact mode should not fuzzy-match")
	})

	t.Run("alias map from HeaderParsing wins", func(t *testing.T) {
		s := budgetState()
		s, _, err := HeaderParsing{}.Apply(context.Background(), s, Params{
			"aliases": map[string]any{"budget": "Planned Cost"},
		})
		require.NoError(t, err)

		next, _, err := a.Apply(context.Background(), s, Params{"targets": []any{"budget"}})
		require.NoError(t, err)
		matches := next.Memory[KeyLocatedColumns].([]ColumnMatch)
		require.Equal(t, 1, matches[0].Col)
	})

	t.Run("infeasible without targets", func(t *testing.T) {
		require.False(t, a.Feasible(budgetState(), Params{}))
	})
}

func TestRowLocating(t *testing.T) {
	a := RowLocating{}

	t.Run("numeric constraint", func(t *testing.T) {
		s := budgetState()
		next, artifact, err := a.Apply(context.Background(), s, Params{
			"constraints": []any{
				map[string]any{"column": "planned cost", "op": ">", "value": "1000"},
			},
		})
		require.NoError(t, err)
		require.Equal(t, []int{0, 1}, next.Memory[KeyLocatedRows])
		require.Equal(t, 2, artifact["count"])
		require.Len(t, next.Constraints, 1, "Applied constraints should accumulate on the state")
		require.Empty(t, s.Constraints)
	})

	t.Run("or combine", func(t *testing.T) {
		s := budgetState()
		next, _, err := a.Apply(context.Background(), s, Params{
			"constraints": []any{
				map[string]any{"column": "item", "op": "==", "value": "band"},
				map[string]any{"column": "item", "op": "==", "value": "venue"},
			},
			"combine": "or",
		})
		require.NoError(t, err)
		require.Equal(t, []int{0, 2}, next.Memory[KeyLocatedRows])
	})

	t.Run("row_contains", func(t *testing.T) {
		s := budgetState()
		next, _, err := a.Apply(context.Background(), s, Params{"row_contains": "Catering"})
		require.NoError(t, err)
		require.Equal(t, []int{1}, next.Memory[KeyLocatedRows])
	})

	t.Run("unparseable cells never satisfy numeric ops", func(t *testing.T) {
		s := budgetState()
		next, _, err := a.Apply(context.Background(), s, Params{
			"constraints": []any{
				map[string]any{"column": "planned cost", "op": "<", "value": "1000"},
			},
		})
		require.NoError(t, err)
		require.Equal(t, []int{2}, next.Memory[KeyLocatedRows], "The na row should not match")
	})

	t.Run("bad combine is infeasible", func(t *testing.T) {
		s := budgetState()
		_, _, err := a.Apply(context.Background(), s, Params{
			"constraints": []any{map[string]any{"column": "item", "op": "==", "value": "band"}},
			"combine":     "xor",
		})
		require.ErrorIs(t, err, ErrInfeasible)
	})
}
