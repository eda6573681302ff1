package reasoning

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tqa/table"
)

func testTable() *table.Table {
	return table.New([]string{"Item", "Cost"}, [][]string{{"venue", "1500"}, {"band", "800"}})
}

func TestNewState(t *testing.T) {
	s := NewState("what is the total cost?", testTable())
	require.Equal(t, 0, s.Step)
	require.False(t, s.Done)
	require.Same(t, s.Table, s.View, "Root view should be the original table")
	require.Empty(t, s.Memory)
}

func TestFork(t *testing.T) {
	s := NewState("q", testTable())
	s.Memory["located_rows"] = []int{0}
	s.Constraints = append(s.Constraints, Constraint{Column: "Item", Op: "==", Value: "venue"})
	s.History = append(s.History, "RowLocating")

	next := s.Fork()

	t.Run("advances step and copies fields", func(t *testing.T) {
		require.Equal(t, 1, next.Step)
		require.Equal(t, s.Constraints, next.Constraints)
		require.Equal(t, s.History, next.History)
		require.Equal(t, s.Memory, next.Memory)
	})

	t.Run("successor writes do not leak back", func(t *testing.T) {
		next.Memory["result"] = 2300.0
		next.Constraints = append(next.Constraints, Constraint{Column: "Cost", Op: ">", Value: "0"})
		next.History = append(next.History, "Computing")

		_, ok := s.Var("result")
		require.False(t, ok, "Parent memory should be untouched")
		require.Len(t, s.Constraints, 1, "Parent constraints should be untouched")
		require.Len(t, s.History, 1, "Parent history should be untouched")
	})
}

func TestNumericVars(t *testing.T) {
	s := NewState("q", testTable())
	s.Memory["total"] = 2300.0
	s.Memory["count"] = 2
	s.Memory["note"] = "text"

	v, ok := s.NumericVar("total")
	require.True(t, ok)
	require.Equal(t, 2300.0, v)

	v, ok = s.NumericVar("count")
	require.True(t, ok)
	require.Equal(t, 2.0, v, "Ints should read as numeric")

	_, ok = s.NumericVar("note")
	require.False(t, ok)

	require.Equal(t, map[string]float64{"total": 2300.0, "count": 2.0}, s.NumericVars())
}

func TestRowIndices(t *testing.T) {
	s := NewState("q", testTable())

	s.Memory["rows"] = []int{0, 1}
	got, ok := s.RowIndices("rows")
	require.True(t, ok)
	require.Equal(t, []int{0, 1}, got)

	// JSON round-trips store numbers as float64
	s.Memory["rows"] = []any{0.0, 1.0}
	got, ok = s.RowIndices("rows")
	require.True(t, ok)
	require.Equal(t, []int{0, 1}, got)

	s.Memory["rows"] = []any{"x"}
	_, ok = s.RowIndices("rows")
	require.False(t, ok)
}
