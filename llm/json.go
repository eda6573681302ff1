package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/rs/zerolog/log"
)

var jsonBlockRE = regexp.MustCompile(`(?s)(\{.*\}|\[.*\])`)

// ExtractJSON pulls the first JSON object or array out of free-form model
// output, tolerating surrounding prose.
func ExtractJSON(text string) (string, error) {
	if text == "" {
		return "", fmt.Errorf("%w: empty output", ErrParse)
	}
	m := jsonBlockRE.FindString(text)
	if m == "" {
		return "", fmt.Errorf("%w: no JSON object/array found", ErrParse)
	}
	return m, nil
}

// ParseJSON extracts and decodes the first JSON value into out.
func ParseJSON(text string, out any) error {
	block, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(block), out); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

const strictReminder = "\n\nIMPORTANT: Output MUST be STRICT JSON only. No explanations."

// ChatJSON calls the client expecting strict JSON and decodes into out.
// Malformed output is retried up to maxRetries extra attempts with a
// strengthened system instruction; the final parse failure is surfaced.
func ChatJSON(ctx context.Context, c Client, system, user string, maxRetries int, out any) error {
	var lastErr error
	sys := system
	for attempt := 0; attempt <= maxRetries; attempt++ {
		raw, err := c.Chat(ctx, sys, user)
		if err != nil {
			lastErr = err
		} else if err = ParseJSON(raw, out); err != nil {
			lastErr = err
		} else {
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", lastErr, ctx.Err())
		}
		log.Debug().Err(lastErr).Int("attempt", attempt+1).Msg("strict-JSON chat attempt failed")
		sys = system + strictReminder
	}
	return fmt.Errorf("chat JSON failed after %d attempts: %w", maxRetries+1, lastErr)
}
