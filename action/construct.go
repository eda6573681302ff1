package action

import (
	"context"
	"regexp"
	"sort"
	"strconv"

	"tqa/reasoning"
	"tqa/table"
)

var underscoreRE = regexp.MustCompile(`\s+`)

// ColumnConstructing derives a new column by evaluating an arithmetic
// expression over existing columns, row by row. Header identifiers use
// underscores in place of spaces ("Planned Unit Cost" -> Planned_Unit_Cost).
type ColumnConstructing struct{}

func (ColumnConstructing) Name() string       { return "ColumnConstructing" }
func (ColumnConstructing) Category() Category { return CategoryReasoning }

func (ColumnConstructing) Feasible(s *reasoning.State, p Params) bool {
	return s.View.NumRows() > 0 && p.String("new_column") != "" && p.String("expr") != ""
}

func (a ColumnConstructing) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	newColumn := p.String("new_column")
	expr := p.String("expr")
	if newColumn == "" || expr == "" {
		return nil, nil, infeasible("ColumnConstructing requires new_column and expr")
	}
	missingAsZero := p.Bool("missing_as_zero")

	t := s.View
	if err := checkExpr(expr); err != nil {
		return nil, nil, err
	}

	// Map expression identifiers to column indices.
	idents := exprIdents(expr)
	colVars := map[string]int{}
	for _, ident := range idents {
		if idx, ok := identColumn(t, ident); ok {
			colVars[ident] = idx
		}
	}

	values := make([]string, t.NumRows())
	computed := 0
	for r := range t.Rows {
		vars := map[string]float64{}
		missing := false
		for ident, idx := range colVars {
			n, ok := ParseNumber(t.Cell(r, idx))
			if !ok {
				if !missingAsZero {
					missing = true
					break
				}
				n = 0
			}
			vars[ident] = n
		}
		if missing {
			continue
		}
		v, err := evalExpr(expr, vars)
		if err != nil {
			return nil, nil, err
		}
		values[r] = strconv.FormatFloat(v, 'g', -1, 64)
		computed++
	}

	headers := append(append([]string(nil), t.Headers...), newColumn)
	rows := make([][]string, t.NumRows())
	for r, row := range t.Rows {
		rows[r] = append(append([]string(nil), row...), values[r])
	}

	next := s.Fork()
	next.View = table.New(headers, rows)

	return next, reasoning.Artifact{
		"new_column": newColumn,
		"expr":       expr,
		"computed":   computed,
	}, nil
}

func identColumn(t *table.Table, ident string) (int, bool) {
	for i, h := range t.Headers {
		if underscoreRE.ReplaceAllString(h, "_") == ident {
			return i, true
		}
	}
	if idx, err := t.ResolveColumn(ident); err == nil {
		return idx, true
	}
	return 0, false
}

// RowConstructing appends an aggregate row built from selected source rows.
type RowConstructing struct{}

func (RowConstructing) Name() string       { return "RowConstructing" }
func (RowConstructing) Category() Category { return CategoryReasoning }

func (a RowConstructing) Feasible(s *reasoning.State, p Params) bool {
	if s.View.NumRows() == 0 {
		return false
	}
	_, ok := a.sourceRows(s, p)
	return ok
}

func (RowConstructing) sourceRows(s *reasoning.State, p Params) ([]int, bool) {
	if rows := p.Ints("rows"); len(rows) > 0 {
		return rows, true
	}
	rows, ok := s.RowIndices(p.StringOr("row_key", KeyLocatedRows))
	return rows, ok && len(rows) > 0
}

func (a RowConstructing) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	src, ok := a.sourceRows(s, p)
	if !ok {
		return nil, nil, infeasible("RowConstructing has no source rows")
	}
	agg := p.StringOr("agg", "sum")
	if !validAgg(agg) || agg == "count" {
		return nil, nil, infeasible("agg must be sum/avg/min/max, got %q", agg)
	}

	t := s.View
	name := p.StringOr("new_row_name", "DerivedRow")
	newRow := make([]string, t.NumCols())
	for c := 0; c < t.NumCols(); c++ {
		var nums []float64
		for _, r := range src {
			if n, ok := ParseNumber(t.Cell(r, c)); ok {
				nums = append(nums, n)
			}
		}
		if len(nums) > 0 {
			newRow[c] = strconv.FormatFloat(aggregate(agg, nums), 'g', -1, 64)
		}
	}

	nameIdx := 0
	if col := p.String("name_column"); col != "" {
		if idx, err := t.ResolveColumn(col); err == nil {
			nameIdx = idx
		}
	}
	newRow[nameIdx] = name

	rows := append(append([][]string(nil), t.Rows...), newRow)

	next := s.Fork()
	next.View = table.New(append([]string(nil), t.Headers...), rows)

	return next, reasoning.Artifact{
		"new_row_name": name,
		"agg":          agg,
		"source_rows":  src,
		"row_index":    len(rows) - 1,
	}, nil
}

// RowSorting sorts row indices by a column and records the order in memory.
type RowSorting struct{}

func (RowSorting) Name() string       { return "RowSorting" }
func (RowSorting) Category() Category { return CategoryReasoning }

func (RowSorting) Feasible(s *reasoning.State, p Params) bool {
	return s.View.NumRows() > 0 && p.String("by") != ""
}

func (a RowSorting) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	by := p.String("by")
	if by == "" {
		return nil, nil, infeasible("RowSorting requires by")
	}
	order := p.StringOr("order", "desc")
	if order != "asc" && order != "desc" {
		return nil, nil, infeasible("order must be asc/desc, got %q", order)
	}
	numeric := true
	if v, ok := p["numeric"].(bool); ok {
		numeric = v
	}

	t := s.View
	idx, err := t.ResolveColumn(by)
	if err != nil {
		return nil, nil, err
	}

	indices := make([]int, 0, t.NumRows())
	if subset, ok := s.RowIndices(p.String("row_key")); ok && p.String("row_key") != "" {
		for _, r := range subset {
			if r >= 0 && r < t.NumRows() {
				indices = append(indices, r)
			}
		}
	} else {
		for r := 0; r < t.NumRows(); r++ {
			indices = append(indices, r)
		}
	}

	numKey := func(r int) float64 {
		n, ok := ParseNumber(t.Cell(r, idx))
		if !ok {
			return -1e30 // unparseable cells sink to the bottom
		}
		return n
	}
	sort.SliceStable(indices, func(i, j int) bool {
		if numeric {
			a, b := numKey(indices[i]), numKey(indices[j])
			if order == "desc" {
				return a > b
			}
			return a < b
		}
		a, b := t.Cell(indices[i], idx), t.Cell(indices[j], idx)
		if order == "desc" {
			return a > b
		}
		return a < b
	})

	next := s.Fork()
	next.Memory[KeySortedRows] = indices

	return next, reasoning.Artifact{
		"out_key":     KeySortedRows,
		"by":          by,
		"order":       order,
		"numeric":     numeric,
		"row_indices": indices,
	}, nil
}

// GroupAggregates is the artifact body produced by Grouping.
type GroupAggregates struct {
	GroupBy    string             `json:"group_by"`
	AggColumn  string             `json:"agg_col"`
	Agg        string             `json:"agg"`
	Groups     map[string][]int   `json:"groups"`
	Aggregates map[string]float64 `json:"aggregates"`
}

// Grouping groups rows by a column, optionally computing per-group aggregates.
type Grouping struct{}

func (Grouping) Name() string       { return "Grouping" }
func (Grouping) Category() Category { return CategoryReasoning }

func (Grouping) Feasible(s *reasoning.State, p Params) bool {
	return s.View.NumRows() > 0 && p.String("group_by") != ""
}

func (a Grouping) Apply(_ context.Context, s *reasoning.State, p Params) (*reasoning.State, reasoning.Artifact, error) {
	groupBy := p.String("group_by")
	if groupBy == "" {
		return nil, nil, infeasible("Grouping requires group_by")
	}
	agg := p.StringOr("agg", "sum")
	if agg != "sum" && agg != "avg" && agg != "count" {
		return nil, nil, infeasible("agg must be sum/avg/count, got %q", agg)
	}

	t := s.View
	gIdx, err := t.ResolveColumn(groupBy)
	if err != nil {
		return nil, nil, err
	}
	aIdx := -1
	aggCol := p.String("agg_col")
	if aggCol != "" {
		if aIdx, err = t.ResolveColumn(aggCol); err != nil {
			return nil, nil, err
		}
	}

	groups := map[string][]int{}
	for r := range t.Rows {
		key := table.Normalize(t.Cell(r, gIdx))
		groups[key] = append(groups[key], r)
	}

	aggregates := map[string]float64{}
	if aIdx >= 0 || agg == "count" {
		for key, rows := range groups {
			if agg == "count" {
				aggregates[key] = float64(len(rows))
				continue
			}
			var nums []float64
			for _, r := range rows {
				if n, ok := ParseNumber(t.Cell(r, aIdx)); ok {
					nums = append(nums, n)
				}
			}
			aggregates[key] = aggregate(agg, nums)
		}
	}

	next := s.Fork()
	next.Memory[KeyGroups] = GroupAggregates{
		GroupBy:    groupBy,
		AggColumn:  aggCol,
		Agg:        agg,
		Groups:     groups,
		Aggregates: aggregates,
	}

	return next, reasoning.Artifact{
		"out_key":        KeyGroups,
		"num_groups":     len(groups),
		"has_aggregates": len(aggregates) > 0,
	}, nil
}
