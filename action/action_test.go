package action

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tqa/reasoning"
	"tqa/table"
)

func budgetTable() *table.Table {
	return table.New(
		[]string{"Item", "Planned Cost", "Actual Cost"},
		[][]string{
			{"venue", "1,500", "1,800"},
			{"catering", "3,000", "2,750"},
			{"band", "800", "800"},
			{"flowers", "na", "120"},
		},
	)
}

func budgetState() *reasoning.State {
	return reasoning.NewState("what was the total actual cost?", budgetTable())
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,500", 1500, true},
		{" 800 ", 800, true},
		{"12.5%", 0.125, true},
		{"-3.2", -3.2, true},
		{"na", 0, false},
		{"N/A", 0, false},
		{"-", 0, false},
		{"", 0, false},
		{"venue", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseNumber(c.in)
		require.Equal(t, c.ok, ok, "ParseNumber(%q) ok", c.in)
		if ok {
			require.InDelta(t, c.want, got, 1e-9, "ParseNumber(%q)", c.in)
		}
	}
}

func TestEvalExpr(t *testing.T) {
	t.Run("arithmetic over variables", func(t *testing.T) {
		got, err := evalExpr("(a + b) / 2", map[string]float64{"a": 3, "b": 5})
		require.NoError(t, err)
		require.InDelta(t, 4.0, got, 1e-9)
	})

	t.Run("integer result", func(t *testing.T) {
		got, err := evalExpr("2 * 3", nil)
		require.NoError(t, err)
		require.InDelta(t, 6.0, got, 1e-9)
	})

	t.Run("rejects unsafe characters", func(t *testing.T) {
		_, err := evalExpr(`__import__("os")`, nil)
		require.Error(t, err, "Quotes must be rejected before evaluation")

		_, err = evalExpr("a; b", map[string]float64{"a": 1, "b": 2})
		require.Error(t, err)
	})

	t.Run("division by zero fails cleanly", func(t *testing.T) {
		_, err := evalExpr("1 / 0", nil)
		require.Error(t, err)
	})

	t.Run("unknown identifier fails", func(t *testing.T) {
		_, err := evalExpr("a + missing", map[string]float64{"a": 1})
		require.Error(t, err)
	})
}

func TestExprIdents(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, exprIdents("a + b * a"))
	require.Empty(t, exprIdents("1 + 2"))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	t.Run("catalogue is complete", func(t *testing.T) {
		require.Len(t, r.Names(), 13, "All built-in actions should register")
		for _, name := range []string{
			"HeaderParsing", "ColumnLocating", "RowLocating",
			"ColumnConstructing", "RowConstructing", "RowSorting", "Grouping",
			"Computing", "GeneralRetrieval", "DomainRetrieval",
			"ParallelDecomposing", "SerialDecomposing", "Finish",
		} {
			_, err := r.Resolve(name)
			require.NoError(t, err, "Should resolve %s", name)
		}
	})

	t.Run("unknown name yields ErrNotFound", func(t *testing.T) {
		_, err := r.Resolve("Teleport")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("replacement action overrides builtin", func(t *testing.T) {
		r := NewRegistry(WithAction(&Finish{}))
		require.Len(t, r.Names(), 13, "Replacement should not add a duplicate name")
	})
}

func TestParamsAccessors(t *testing.T) {
	// shapes as they arrive from decoded planner JSON
	p := Params{
		"name":    "col",
		"count":   3.0,
		"flag":    true,
		"targets": []any{"a", "b"},
		"rows":    []any{0.0, 2.0},
		"aliases": map[string]any{"qty": "Quantity"},
	}

	require.Equal(t, "col", p.String("name"))
	require.Equal(t, "col", p.StringOr("name", "x"))
	require.Equal(t, "x", p.StringOr("missing", "x"))
	require.True(t, p.Bool("flag"))

	n, ok := p.Int("count")
	require.True(t, ok)
	require.Equal(t, 3, n)

	require.Equal(t, []string{"a", "b"}, p.Strings("targets"))
	require.Equal(t, []int{0, 2}, p.Ints("rows"))
	require.Equal(t, map[string]string{"qty": "Quantity"}, p.StringMap("aliases"))
}
