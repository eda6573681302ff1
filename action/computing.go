package action

import (
	"context"

	"tqa/reasoning"
)

// Computing executes a structured computation plan deterministically. The
// plan arrives as parameters (produced upstream by the planner): either an
// aggregation over a column, optionally restricted to previously located
// rows, or an arithmetic expression over numeric memory variables. All math
// runs in code; no collaborator output is trusted as a result.
type Computing struct{}

func (Computing) Name() string       { return "Computing" }
func (Computing) Category() Category { return CategoryComputation }

func (Computing) Feasible(s *reasoning.State, p Params) bool {
	switch p.String("mode") {
	case "agg":
		if p.String("column") == "" {
			return false
		}
		_, err := s.View.ResolveColumn(p.String("column"))
		return err == nil
	case "expr":
		expr := p.String("expr")
		if expr == "" || checkExpr(expr) != nil {
			return false
		}
		// Every referenced identifier must already be a numeric variable,
		// unless missing_as_zero is set.
		if p.Bool("missing_as_zero") {
			return true
		}
		for _, ident := range exprIdents(expr) {
			if _, ok := s.NumericVar(ident); !ok {
				return false
			}
		}
		return true
	}
	return false
}

func (a Computing) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	outVar := p.StringOr("out_var", KeyResult)
	switch p.String("mode") {
	case "agg":
		return a.applyAgg(s, p, outVar)
	case "expr":
		return a.applyExpr(s, p, outVar)
	}
	return nil, nil, infeasible("Computing mode must be agg or expr")
}

func (Computing) applyAgg(s *reasoning.State, p Params, outVar string) (*reasoning.State, reasoning.Artifact, error) {
	agg := p.StringOr("agg", "sum")
	if !validAgg(agg) {
		return nil, nil, infeasible("invalid agg %q", agg)
	}
	column := p.String("column")
	t := s.View
	colIdx, err := t.ResolveColumn(column)
	if err != nil {
		return nil, nil, err
	}

	rows := make([]int, 0, t.NumRows())
	rowKey := p.String("row_key")
	if rowKey != "" {
		subset, ok := s.RowIndices(rowKey)
		if !ok {
			return nil, nil, infeasible("row_key %q is not a located row set", rowKey)
		}
		rows = append(rows, subset...)
	} else {
		for r := 0; r < t.NumRows(); r++ {
			rows = append(rows, r)
		}
	}

	missingAsZero := p.Bool("missing_as_zero")
	var nums []float64
	for _, r := range rows {
		if r < 0 || r >= t.NumRows() {
			continue
		}
		n, ok := ParseNumber(t.Cell(r, colIdx))
		if !ok {
			if !missingAsZero {
				continue
			}
			n = 0
		}
		nums = append(nums, n)
	}

	value := aggregate(agg, nums)

	next := s.Fork()
	next.Memory[outVar] = value

	return next, reasoning.Artifact{
		"mode":      "agg",
		"agg":       agg,
		"column":    column,
		"row_key":   rowKey,
		"rows_used": len(rows),
		"out_var":   outVar,
		"value":     value,
	}, nil
}

func (Computing) applyExpr(s *reasoning.State, p Params, outVar string) (*reasoning.State, reasoning.Artifact, error) {
	expr := p.String("expr")
	if expr == "" {
		return nil, nil, infeasible("Computing expr mode requires expr")
	}
	missingAsZero := p.Bool("missing_as_zero")

	vars := map[string]float64{}
	for _, ident := range exprIdents(expr) {
		if v, ok := s.NumericVar(ident); ok {
			vars[ident] = v
		} else if missingAsZero {
			vars[ident] = 0
		} else {
			return nil, nil, infeasible("variable %q not numeric in memory", ident)
		}
	}

	value, err := evalExpr(expr, vars)
	if err != nil {
		return nil, nil, err
	}

	next := s.Fork()
	next.Memory[outVar] = value

	varsUsed := make([]string, 0, len(vars))
	for k := range vars {
		varsUsed = append(varsUsed, k)
	}

	return next, reasoning.Artifact{
		"mode":      "expr",
		"expr":      expr,
		"out_var":   outVar,
		"value":     value,
		"vars_used": varsUsed,
	}, nil
}
