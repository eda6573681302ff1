package action

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"tqa/reasoning"
	"tqa/table"
)

var compoundRE = regexp.MustCompile(`[/\n\-]+`)

// HeaderParsing normalizes headers, splits compound headers, and records an
// alias map for later column resolution.
type HeaderParsing struct{}

func (HeaderParsing) Name() string       { return "HeaderParsing" }
func (HeaderParsing) Category() Category { return CategoryTableRetrieval }

func (HeaderParsing) Feasible(s *reasoning.State, _ Params) bool {
	return s.View.NumCols() > 0
}

func (HeaderParsing) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	headers := s.View.Headers

	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = table.Normalize(h)
	}

	compounds := map[string][]string{}
	for _, h := range headers {
		var parts []string
		for _, part := range compoundRE.Split(h, -1) {
			if part = strings.TrimSpace(part); part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) >= 2 {
			compounds[h] = parts
		}
	}

	aliases := map[string]string{}
	for alias, canonical := range p.StringMap("aliases") {
		if canonical != "" {
			aliases[table.Normalize(alias)] = canonical
		}
	}

	next := s.Fork()
	info := map[string]any{
		"headers":            headers,
		"normalized_headers": normalized,
		"compound_splits":    compounds,
		"alias_map":          aliases,
	}
	next.Memory[KeyHeaderInfo] = info

	return next, reasoning.Artifact{
		"out_key":        KeyHeaderInfo,
		"num_headers":    len(headers),
		"alias_count":    len(aliases),
		"compound_count": len(compounds),
	}, nil
}

// ColumnMatch records one target-to-header resolution.
type ColumnMatch struct {
	Target  string `json:"target"`
	Matched string `json:"matched"`
	Col     int    `json:"col_index"`
}

// ColumnLocating resolves question concepts to concrete column headers using
// exact or soft matching plus any alias map produced by HeaderParsing.
type ColumnLocating struct{}

func (ColumnLocating) Name() string       { return "ColumnLocating" }
func (ColumnLocating) Category() Category { return CategoryTableRetrieval }

func (ColumnLocating) Feasible(s *reasoning.State, p Params) bool {
	return s.View.NumCols() > 0 && len(p.Strings("targets")) > 0
}

func (a ColumnLocating) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	targets := p.Strings("targets")
	if len(targets) == 0 {
		return nil, nil, infeasible("ColumnLocating requires targets")
	}
	mode := p.StringOr("mode", "soft")
	if mode != "exact" && mode != "soft" {
		return nil, nil, infeasible("mode must be exact or soft, got %q", mode)
	}

	headers := s.View.Headers
	aliases := headerAliases(s)

	matches := make([]ColumnMatch, 0, len(targets))
	for _, target := range targets {
		key := table.Normalize(target)
		if canonical, ok := aliases[key]; ok {
			key = table.Normalize(canonical)
		}
		idx := matchHeader(headers, key, mode)
		m := ColumnMatch{Target: target, Col: idx}
		if idx >= 0 {
			m.Matched = headers[idx]
		}
		matches = append(matches, m)
	}

	next := s.Fork()
	next.Memory[KeyLocatedColumns] = matches

	return next, reasoning.Artifact{
		"out_key": KeyLocatedColumns,
		"matches": matches,
	}, nil
}

func headerAliases(s *reasoning.State) map[string]string {
	info, _ := s.Memory[KeyHeaderInfo].(map[string]any)
	switch m := info["alias_map"].(type) {
	case map[string]string:
		return m
	case map[string]any:
		out := make(map[string]string, len(m))
		for k, v := range m {
			if sv, ok := v.(string); ok {
				out[k] = sv
			}
		}
		return out
	}
	return nil
}

func matchHeader(headers []string, key, mode string) int {
	if mode == "exact" {
		for i, h := range headers {
			if table.Normalize(h) == key {
				return i
			}
		}
		return -1
	}

	best, bestScore := -1, 0
	for i, h := range headers {
		norm := table.Normalize(h)
		score := 0
		switch {
		case norm == key:
			score = 100
		case strings.Contains(norm, key) || strings.Contains(key, norm):
			score = 60
		default:
			overlap := 0
			words := map[string]bool{}
			for _, w := range strings.Fields(key) {
				words[w] = true
			}
			for _, w := range strings.Fields(norm) {
				if words[w] {
					overlap++
				}
			}
			score = 10 * overlap
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// RowLocating filters rows by resolved constraints and/or a containment
// phrase, recording the selected indices and the constraints on the state.
type RowLocating struct{}

func (RowLocating) Name() string       { return "RowLocating" }
func (RowLocating) Category() Category { return CategoryTableRetrieval }

func (RowLocating) Feasible(s *reasoning.State, p Params) bool {
	if s.View.NumRows() == 0 {
		return false
	}
	return len(p.Maps("constraints")) > 0 || p.String("row_contains") != ""
}

func (a RowLocating) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	rawConstraints := p.Maps("constraints")
	contains := p.String("row_contains")
	combine := p.StringOr("combine", "and")
	if combine != "and" && combine != "or" {
		return nil, nil, infeasible("combine must be and/or, got %q", combine)
	}
	if len(rawConstraints) == 0 && contains == "" {
		return nil, nil, infeasible("RowLocating requires constraints or row_contains")
	}

	constraints := make([]reasoning.Constraint, 0, len(rawConstraints))
	for _, c := range rawConstraints {
		col, _ := c["column"].(string)
		op, _ := c["op"].(string)
		val := strings.TrimSpace(stringify(c["value"]))
		constraints = append(constraints, reasoning.Constraint{Column: col, Op: strings.TrimSpace(op), Value: val})
	}

	t := s.View
	var selected []int
	for i, row := range t.Rows {
		ok := true
		if contains != "" {
			ok = strings.Contains(table.Normalize(strings.Join(row, " | ")), table.Normalize(contains))
		}
		if ok && len(constraints) > 0 {
			ok = checkConstraints(t, row, constraints, combine)
		}
		if ok {
			selected = append(selected, i)
		}
	}

	next := s.Fork()
	next.Memory[KeyLocatedRows] = selected
	next.Constraints = append(next.Constraints, constraints...)

	return next, reasoning.Artifact{
		"out_key":      KeyLocatedRows,
		"row_indices":  selected,
		"count":        len(selected),
		"combine":      combine,
		"constraints":  constraints,
		"row_contains": contains,
	}, nil
}

func checkConstraints(t *table.Table, row []string, constraints []reasoning.Constraint, combine string) bool {
	hitAny := false
	for _, c := range constraints {
		hit := checkConstraint(t, row, c)
		if combine == "and" && !hit {
			return false
		}
		if hit {
			hitAny = true
		}
	}
	if combine == "and" {
		return true
	}
	return hitAny
}

func checkConstraint(t *table.Table, row []string, c reasoning.Constraint) bool {
	if c.Column == "" || c.Op == "" {
		return false
	}
	idx, err := t.ResolveColumn(c.Column)
	if err != nil {
		return false
	}
	cell := ""
	if idx < len(row) {
		cell = strings.TrimSpace(row[idx])
	}

	switch c.Op {
	case "==", "=":
		return cell == c.Value
	case "!=":
		return cell != c.Value
	case "contains":
		return strings.Contains(table.Normalize(cell), table.Normalize(c.Value))
	case ">", ">=", "<", "<=":
		a, okA := ParseNumber(cell)
		b, okB := ParseNumber(c.Value)
		if !okA || !okB {
			return false
		}
		switch c.Op {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		default:
			return a <= b
		}
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
