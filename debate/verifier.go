package debate

import (
	"fmt"
	"strconv"
	"strings"

	"tqa/agent"
)

// Verifier performs a deterministic sanity check on a candidate answer.
type Verifier interface {
	Verify(question string, answer any) bool
}

// SimpleVerifier accepts an answer when its shape matches what the question
// asks for: questions with numeric cues want a parseable number, everything
// else wants a non-empty answer.
type SimpleVerifier struct{}

func (SimpleVerifier) Verify(question string, answer any) bool {
	text := strings.TrimSpace(fmt.Sprintf("%v", answer))
	if text == "" || text == "<nil>" {
		return false
	}

	_, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", ""), 64)
	numeric := err == nil

	if agent.QuestionWantsNumber(question) {
		return numeric
	}
	return true
}
