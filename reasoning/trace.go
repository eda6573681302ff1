package reasoning

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCandidates is the hard failure surfaced when a search (or the debate
// stage after dropping every trace) ends with zero successful terminal
// trajectories.
var ErrNoCandidates = errors.New("no candidate traces")

// Step is one step on a trace: the action that was applied, its parameters,
// the state it produced and the artifact it emitted. Immutable after creation.
type Step struct {
	Action   string
	Params   map[string]any
	State    *State
	Artifact Artifact
}

// Trace is the immutable record of one root-to-leaf trajectory plus the
// terminal candidate answer. Two traces are distinct iff their action
// sequences differ.
type Trace struct {
	ID     string
	Steps  []Step
	Answer any
	// Score is the trajectory-level aggregate assigned at extraction time
	// (mean Q along the path); the debate stage may refine it.
	Score float64
}

// Signature identifies a trace by its ordered action sequence.
// Used for candidate deduplication.
func (t *Trace) Signature() string {
	names := make([]string, len(t.Steps))
	for i, s := range t.Steps {
		names[i] = s.Action
	}
	return strings.Join(names, ">")
}

// Terminal reports whether the trace ended in a finished state.
func (t *Trace) Terminal() bool {
	return len(t.Steps) > 0 && t.Steps[len(t.Steps)-1].State.Done
}

// Summary renders a compact human-readable view of the trace for logs and
// debate prompts.
func (t *Trace) Summary(maxChars int) string {
	var b strings.Builder
	for i, s := range t.Steps {
		fmt.Fprintf(&b, "[%d] %s %v -> %v\n", i, s.Action, s.Params, compactArtifact(s.Artifact))
	}
	fmt.Fprintf(&b, "answer: %v", t.Answer)
	out := b.String()
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars] + " ...[truncated]"
	}
	return out
}

func compactArtifact(a Artifact) map[string]any {
	const maxStr = 200
	out := make(map[string]any, len(a))
	for k, v := range a {
		if s, ok := v.(string); ok && len(s) > maxStr {
			v = s[:maxStr] + " ...[truncated]"
		}
		out[k] = v
	}
	return out
}
