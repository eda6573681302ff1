package reasoning

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tqa/table"
)

func traceOf(actions ...string) *Trace {
	tbl := table.New([]string{"a"}, nil)
	steps := make([]Step, len(actions))
	s := NewState("q", tbl)
	for i, a := range actions {
		s = s.Fork()
		s.History = append(s.History, a)
		steps[i] = Step{Action: a, State: s}
	}
	return &Trace{ID: "t", Steps: steps}
}

func TestSignature(t *testing.T) {
	a := traceOf("ColumnLocating", "Computing", "Finish")
	b := traceOf("ColumnLocating", "Computing", "Finish")
	c := traceOf("RowLocating", "Computing", "Finish")

	require.Equal(t, "ColumnLocating>Computing>Finish", a.Signature())
	require.Equal(t, a.Signature(), b.Signature(), "Identical action sequences should collide")
	require.NotEqual(t, a.Signature(), c.Signature())
}

func TestTerminal(t *testing.T) {
	tr := traceOf("Finish")
	require.False(t, tr.Terminal())

	tr.Steps[len(tr.Steps)-1].State.Done = true
	require.True(t, tr.Terminal())

	empty := &Trace{}
	require.False(t, empty.Terminal())
}

func TestSummaryTruncates(t *testing.T) {
	tr := traceOf("HeaderParsing", "ColumnLocating", "Computing", "Finish")
	tr.Answer = 2300.0

	full := tr.Summary(0)
	require.Contains(t, full, "HeaderParsing")
	require.Contains(t, full, "answer: 2300")

	short := tr.Summary(40)
	require.LessOrEqual(t, len(short), 40+len(" ...[truncated]"))
	require.Contains(t, short, "truncated")
}
