package exec

import (
	"fmt"
	"strings"

	"github.com/lazytable/lazytable/plan"
	"github.com/lazytable/lazytable/table"
)

// accumulator is the incremental group-key state behind a group aggregate.
// Groups are kept in first-seen order so finalization produces a
// deterministic row order for a given input order. Memory grows with the
// number of distinct keys, not with the row count.
type accumulator struct {
	groupBy []string
	aggs    []plan.AggSpec
	order   []string
	groups  map[string]*groupState
}

type groupState struct {
	// keyValues holds the group-by column values, aligned with groupBy.
	keyValues []any
	stats     []aggState
}

// aggState carries the running numbers for one statistic of one group. avg
// is derived at finalization as sum/seen rather than kept as a running
// average, so rounding error does not compound.
type aggState struct {
	count int64
	sum   float64
	seen  int64
	best  any
}

func newAccumulator(groupBy []string, aggs []plan.AggSpec) *accumulator {
	return &accumulator{
		groupBy: groupBy,
		aggs:    aggs,
		groups:  make(map[string]*groupState),
	}
}

func (acc *accumulator) numGroups() int {
	return len(acc.order)
}

// update folds one row into the accumulator.
func (acc *accumulator) update(row map[string]any) error {
	key, keyValues, err := acc.groupKey(row)
	if err != nil {
		return err
	}

	st, ok := acc.groups[key]
	if !ok {
		st = &groupState{
			keyValues: keyValues,
			stats:     make([]aggState, len(acc.aggs)),
		}
		acc.groups[key] = st
		acc.order = append(acc.order, key)
	}

	for i, a := range acc.aggs {
		s := &st.stats[i]
		switch a.Reducer {
		case plan.Count:
			if a.Column == "" || row[a.Column] != nil {
				s.count++
			}
		case plan.Sum, plan.Avg:
			v := row[a.Column]
			if v == nil {
				continue
			}
			f, ok := table.AsFloat(v)
			if !ok {
				return fmt.Errorf("%w: %s(%s) over non-numeric %T", table.ErrCompute, a.Reducer, a.Column, v)
			}
			s.sum += f
			s.seen++
		case plan.Min, plan.Max:
			v := row[a.Column]
			if v == nil {
				continue
			}
			if s.best == nil {
				s.best = v
				continue
			}
			less, err := lessValue(v, s.best)
			if err != nil {
				return fmt.Errorf("%w: %s(%s): %v", table.ErrCompute, a.Reducer, a.Column, err)
			}
			if less == (a.Reducer == plan.Min) {
				s.best = v
			}
		}
	}
	return nil
}

// groupKey builds a collision-safe key from the group-by column values.
func (acc *accumulator) groupKey(row map[string]any) (string, []any, error) {
	var key strings.Builder
	keyValues := make([]any, len(acc.groupBy))
	for i, col := range acc.groupBy {
		v, ok := row[col]
		if !ok {
			return "", nil, fmt.Errorf("%w: group column %q missing from row", table.ErrCompute, col)
		}
		if i > 0 {
			key.WriteString("\x00|\x00")
		}
		fmt.Fprintf(&key, "%#v", v)
		keyValues[i] = v
	}
	return key.String(), keyValues, nil
}

// finalize converts the accumulated state into output batches of at most
// chunk rows each, in first-seen group order. The schema must be the one the
// owning GroupAggregate node computed: group-by fields first, then one field
// per statistic.
func (acc *accumulator) finalize(schema *table.Schema, chunk int) []table.Batch {
	fields := schema.Fields()
	total := len(acc.order)

	var batches []table.Batch
	for start := 0; start < total; start += chunk {
		end := min(start+chunk, total)
		cols := make([]table.Column, len(fields))
		for fi, f := range fields {
			cols[fi] = table.Column{Name: f.Name, Type: f.Type, Values: make([]any, end-start)}
		}
		for ri, key := range acc.order[start:end] {
			st := acc.groups[key]
			for gi := range acc.groupBy {
				cols[gi].Values[ri] = st.keyValues[gi]
			}
			for ai, a := range acc.aggs {
				cols[len(acc.groupBy)+ai].Values[ri] = finalValue(st.stats[ai], a)
			}
		}
		batches = append(batches, table.Batch{Columns: cols})
	}
	return batches
}

func finalValue(s aggState, a plan.AggSpec) any {
	switch a.Reducer {
	case plan.Count:
		return s.count
	case plan.Sum:
		return s.sum
	case plan.Avg:
		if s.seen == 0 {
			return nil
		}
		return s.sum / float64(s.seen)
	default: // Min, Max
		return s.best
	}
}

// lessValue orders two non-nil values of matching kind.
func lessValue(a, b any) (bool, error) {
	if af, ok := table.AsFloat(a); ok {
		if bf, ok := table.AsFloat(b); ok {
			return af < bf, nil
		}
	}
	if as, ok := table.AsString(a); ok {
		if bs, ok := table.AsString(b); ok {
			return as < bs, nil
		}
	}
	return false, fmt.Errorf("cannot order %T against %T", a, b)
}
