package plan

import (
	"fmt"
	"strings"

	"github.com/lazytable/lazytable/table"
)

// Reducer identifies an aggregate statistic.
type Reducer int

const (
	Count Reducer = iota
	Sum
	Avg
	Min
	Max
)

// String returns the lowercase reducer name.
func (r Reducer) String() string {
	switch r {
	case Count:
		return "count"
	case Sum:
		return "sum"
	case Avg:
		return "avg"
	case Min:
		return "min"
	case Max:
		return "max"
	default:
		return fmt.Sprintf("reducer(%d)", int(r))
	}
}

// ParseReducer converts a reducer name, as found in configuration files,
// back into a Reducer.
func ParseReducer(name string) (Reducer, error) {
	switch strings.ToLower(name) {
	case "count":
		return Count, nil
	case "sum":
		return Sum, nil
	case "avg", "mean":
		return Avg, nil
	case "min":
		return Min, nil
	case "max":
		return Max, nil
	default:
		return 0, fmt.Errorf("%w: unknown reducer %q", table.ErrSchema, name)
	}
}

// AggSpec requests one statistic over one source column. Count ignores the
// column and counts rows when Column is empty, non-null values otherwise.
// As names the output column.
type AggSpec struct {
	Column  string
	Reducer Reducer
	As      string
}

func (a AggSpec) String() string {
	arg := a.Column
	if a.Reducer == Count && a.Column == "" {
		arg = "*"
	}
	return fmt.Sprintf("%s(%s) as %s", a.Reducer, arg, a.As)
}

// GroupAggregate groups rows by the GroupBy columns and computes every
// requested statistic in a single pass. Its working memory is bounded by the
// number of distinct group keys rather than by the chunk size; this is the
// one operator exempt from the streaming memory ceiling.
type GroupAggregate struct {
	GroupBy []string
	Aggs    []AggSpec

	in     Node
	schema *table.Schema
}

// NewGroupAggregate wraps the input in a grouped aggregation. Fails with
// table.ErrSchema on unknown columns, duplicate or empty output names, or a
// reducer applied to an incompatible type (sum and avg need numeric input,
// min and max need numeric or textual input).
func NewGroupAggregate(in Node, groupBy []string, aggs []AggSpec) (*GroupAggregate, error) {
	if len(aggs) == 0 {
		return nil, fmt.Errorf("%w: group aggregate needs at least one statistic", table.ErrSchema)
	}
	inSchema := in.Schema()

	fields := make([]table.Field, 0, len(groupBy)+len(aggs))
	seen := make(map[string]bool, len(groupBy)+len(aggs))
	for _, name := range groupBy {
		f, ok := inSchema.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown group column %q", table.ErrSchema, name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate group column %q", table.ErrSchema, name)
		}
		seen[name] = true
		fields = append(fields, f)
	}

	for _, a := range aggs {
		if a.As == "" {
			return nil, fmt.Errorf("%w: aggregation %s(%s) needs an output name", table.ErrSchema, a.Reducer, a.Column)
		}
		if seen[a.As] {
			return nil, fmt.Errorf("%w: duplicate output column %q", table.ErrSchema, a.As)
		}
		seen[a.As] = true

		out, err := reducerOutput(inSchema, a)
		if err != nil {
			return nil, err
		}
		fields = append(fields, table.Field{Name: a.As, Type: out})
	}

	return &GroupAggregate{
		GroupBy: append([]string(nil), groupBy...),
		Aggs:    append([]AggSpec(nil), aggs...),
		in:      in,
		schema:  table.NewSchema(fields...),
	}, nil
}

// reducerOutput validates one AggSpec against the input schema and reports
// the output column type.
func reducerOutput(s *table.Schema, a AggSpec) (table.Type, error) {
	if a.Reducer == Count && a.Column == "" {
		return table.Int, nil
	}
	f, ok := s.Field(a.Column)
	if !ok {
		return 0, fmt.Errorf("%w: unknown aggregation column %q", table.ErrSchema, a.Column)
	}
	switch a.Reducer {
	case Count:
		return table.Int, nil
	case Sum, Avg:
		if !f.Type.Numeric() {
			return 0, fmt.Errorf("%w: %s needs a numeric column, %q is %s",
				table.ErrSchema, a.Reducer, a.Column, f.Type)
		}
		return table.Float, nil
	case Min, Max:
		if !f.Type.Numeric() && f.Type != table.String {
			return 0, fmt.Errorf("%w: %s cannot order %q of type %s",
				table.ErrSchema, a.Reducer, a.Column, f.Type)
		}
		return f.Type, nil
	default:
		return 0, fmt.Errorf("%w: unknown reducer %d", table.ErrSchema, a.Reducer)
	}
}

func (g *GroupAggregate) Schema() *table.Schema { return g.schema }
func (g *GroupAggregate) Input() Node           { return g.in }

func (g *GroupAggregate) String() string {
	parts := make([]string, len(g.Aggs))
	for i, a := range g.Aggs {
		parts[i] = a.String()
	}
	return fmt.Sprintf("group_aggregate(by=[%s], %s)",
		strings.Join(g.GroupBy, " "), strings.Join(parts, ", "))
}
