package action

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var exprFileOptions = &syntax.FileOptions{}

var identRE = regexp.MustCompile(`[A-Za-z_]\w*`)

// ParseNumber converts a table cell to a number. Thousand separators are
// dropped and a trailing percent sign divides by 100. Placeholder cells
// ("na", "-", ...) report false.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "n/a", "null", "none", "-":
		return 0, false
	}
	percent := strings.HasSuffix(s, "%")
	if percent {
		s = strings.TrimSuffix(s, "%")
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if percent {
		f /= 100
	}
	return f, true
}

func aggregate(agg string, nums []float64) float64 {
	if agg == "count" {
		return float64(len(nums))
	}
	if len(nums) == 0 {
		return 0
	}
	switch agg {
	case "sum":
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return total
	case "avg":
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return total / float64(len(nums))
	case "min":
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Min(m, n)
		}
		return m
	default: // max
		m := nums[0]
		for _, n := range nums[1:] {
			m = math.Max(m, n)
		}
		return m
	}
}

func validAgg(agg string) bool {
	switch agg {
	case "sum", "avg", "min", "max", "count":
		return true
	}
	return false
}

// checkExpr rejects expressions containing anything beyond identifiers,
// numbers and basic arithmetic. Run before handing the text to starlark.
func checkExpr(expr string) error {
	for _, ch := range expr {
		if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' {
			continue
		}
		if strings.ContainsRune("+-*/(). _", ch) {
			continue
		}
		return fmt.Errorf("unsafe character in expr: %q", ch)
	}
	return nil
}

// exprIdents returns the distinct identifiers referenced by an expression.
func exprIdents(expr string) []string {
	seen := map[string]bool{}
	var out []string
	for _, tok := range identRE.FindAllString(expr, -1) {
		if !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

// evalExpr evaluates an arithmetic expression over the given variables.
// Starlark acts as the deterministic arithmetic engine; checkExpr has already
// restricted the surface to plain arithmetic.
func evalExpr(expr string, vars map[string]float64) (float64, error) {
	if err := checkExpr(expr); err != nil {
		return 0, err
	}
	env := make(starlark.StringDict, len(vars))
	for k, v := range vars {
		env[k] = starlark.Float(v)
	}
	thread := &starlark.Thread{Name: "expr"}
	val, err := starlark.EvalOptions(exprFileOptions, thread, "expr", expr, env)
	if err != nil {
		return 0, fmt.Errorf("expr eval failed: %w", err)
	}
	switch v := val.(type) {
	case starlark.Float:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("expr output not finite: %s", expr)
		}
		return f, nil
	case starlark.Int:
		f, _ := starlark.AsFloat(v)
		return f, nil
	}
	return 0, fmt.Errorf("expr output not numeric: %s", expr)
}
