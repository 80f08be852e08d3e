package plan

import (
	"github.com/lazytable/lazytable/expr"
	"github.com/lazytable/lazytable/table"
)

// maxPasses bounds the rewrite loop so optimization always terminates even
// if a rule pair were to oscillate.
const maxPasses = 16

// Optimize rewrites a plan into an equivalent, cheaper one:
//
//   - predicate pushdown: filters move below derives and projections that do
//     not feed them, so rows are dropped before derived columns are computed
//   - filter merging: adjacent filters collapse into one conjunction
//   - aggregate fusion: stacked aggregations over the same group keys merge
//     into a single-pass group aggregate
//   - projection pruning: the scan requests only the columns the rest of the
//     plan actually reads
//
// Rules are applied to a fixed point. Optimize never fails; a plan already
// in normal form comes back unchanged, and running Optimize twice yields the
// same plan as running it once.
func Optimize(root Node) Node {
	cur := root
	for i := 0; i < maxPasses; i++ {
		next := rewrite(cur)
		if Format(next) == Format(cur) {
			cur = next
			break
		}
		cur = next
	}
	return pruneColumns(cur)
}

// rewrite applies the structural rules once, bottom up.
func rewrite(n Node) Node {
	switch n := n.(type) {
	case *Scan:
		return n

	case *Filter:
		in := rewrite(n.in)
		if out, ok := pushFilter(n.Pred, in); ok {
			return out
		}
		if in == n.in {
			return n
		}
		if nf, err := NewFilter(in, n.Pred); err == nil {
			return nf
		}
		return n

	case *Derive:
		in := rewrite(n.in)
		if in == n.in {
			return n
		}
		if nd, err := n.deriveWith(in); err == nil {
			return nd
		}
		return n

	case *Project:
		in := rewrite(n.in)
		if p, ok := in.(*Project); ok {
			if collapsed, err := NewProject(p.in, n.Columns); err == nil {
				return collapsed
			}
		}
		if in == n.in {
			return n
		}
		if np, err := NewProject(in, n.Columns); err == nil {
			return np
		}
		return n

	case *GroupAggregate:
		in := rewrite(n.in)
		if fused, ok := fuseAggregates(n, in); ok {
			return fused
		}
		if in == n.in {
			return n
		}
		if ng, err := NewGroupAggregate(in, n.GroupBy, n.Aggs); err == nil {
			return ng
		}
		return n

	default:
		return n
	}
}

// pushFilter tries to move a predicate below the input operator. It reports
// false when no rule applies.
func pushFilter(pred expr.Expr, in Node) (Node, bool) {
	switch in := in.(type) {
	case *Derive:
		// Safe only when the predicate ignores the derived column.
		if contains(pred.Columns(), in.Name) {
			return nil, false
		}
		pushed, err := NewFilter(in.in, pred)
		if err != nil {
			return nil, false
		}
		out, err := in.deriveWith(rewrite(pushed))
		if err != nil {
			return nil, false
		}
		return out, true

	case *Project:
		// Safe only when the projection keeps every predicate column.
		if !subset(pred.Columns(), in.Columns) {
			return nil, false
		}
		pushed, err := NewFilter(in.in, pred)
		if err != nil {
			return nil, false
		}
		out, err := NewProject(rewrite(pushed), in.Columns)
		if err != nil {
			return nil, false
		}
		return out, true

	case *Filter:
		// The inner filter ran first; keep its predicate first in the
		// conjunction so evaluation order is preserved.
		merged, err := NewFilter(in.in, expr.And(in.Pred, pred))
		if err != nil {
			return nil, false
		}
		return rewriteFilter(merged), true
	}
	return nil, false
}

// rewriteFilter re-runs the filter rules on a freshly merged filter so a
// conjunction keeps sinking in the same pass.
func rewriteFilter(f *Filter) Node {
	if out, ok := pushFilter(f.Pred, f.in); ok {
		return out
	}
	return f
}

// fuseAggregates merges a group aggregate whose input is another group
// aggregate over the same keys. With identical keys the inner node emits one
// row per group, so an outer sum, avg, min or max of an inner statistic is
// that statistic itself; both passes collapse into one.
func fuseAggregates(outer *GroupAggregate, in Node) (Node, bool) {
	inner, ok := in.(*GroupAggregate)
	if !ok || !equalStrings(outer.GroupBy, inner.GroupBy) {
		return nil, false
	}

	innerByName := make(map[string]AggSpec, len(inner.Aggs))
	for _, a := range inner.Aggs {
		innerByName[a.As] = a
	}

	fused := make([]AggSpec, 0, len(outer.Aggs))
	for _, o := range outer.Aggs {
		switch o.Reducer {
		case Sum, Avg, Min, Max:
		default:
			return nil, false
		}
		src, ok := innerByName[o.Column]
		if !ok {
			return nil, false
		}
		f := AggSpec{Column: src.Column, Reducer: src.Reducer, As: o.As}
		// The fused statistic must keep the outer column's declared type;
		// avg over an Int-typed count would otherwise turn Float into Int.
		want, _ := outer.schema.Field(o.As)
		got, err := reducerOutput(inner.in.Schema(), f)
		if err != nil || got != want.Type {
			return nil, false
		}
		fused = append(fused, f)
	}

	out, err := NewGroupAggregate(inner.in, outer.GroupBy, fused)
	if err != nil {
		return nil, false
	}
	return out, true
}

// pruneColumns walks the plan computing the minimal column set each operator
// needs from its input, and narrows the scan's requested columns to it. A
// nil requirement means every output column is required, which is always the
// case at the root.
func pruneColumns(root Node) Node {
	return prune(root, nil)
}

func prune(n Node, req []string) Node {
	switch n := n.(type) {
	case *Scan:
		cols := req
		if cols == nil {
			cols = n.schema.Names()
		}
		ordered := orderBySchema(n.schema, cols)
		if equalStrings(n.Columns, ordered) {
			return n
		}
		return n.scanWith(ordered)

	case *Filter:
		need := union(reqOrAll(n, req), n.Pred.Columns())
		in := prune(n.in, need)
		if in == n.in {
			return n
		}
		if nf, err := NewFilter(in, n.Pred); err == nil {
			return nf
		}
		return n

	case *Derive:
		need := union(remove(reqOrAll(n, req), n.Name), n.Expr.Columns())
		in := prune(n.in, need)
		if in == n.in {
			return n
		}
		if nd, err := n.deriveWith(in); err == nil {
			return nd
		}
		return n

	case *Project:
		in := prune(n.in, n.Columns)
		if in == n.in {
			return n
		}
		if np, err := NewProject(in, n.Columns); err == nil {
			return np
		}
		return n

	case *GroupAggregate:
		need := append([]string(nil), n.GroupBy...)
		for _, a := range n.Aggs {
			if a.Column != "" {
				need = union(need, []string{a.Column})
			}
		}
		in := prune(n.in, need)
		if in == n.in {
			return n
		}
		if ng, err := NewGroupAggregate(in, n.GroupBy, n.Aggs); err == nil {
			return ng
		}
		return n

	default:
		return n
	}
}

func reqOrAll(n Node, req []string) []string {
	if req == nil {
		return n.Schema().Names()
	}
	return req
}

// orderBySchema returns the members of cols in schema declaration order.
func orderBySchema(s *table.Schema, cols []string) []string {
	want := make(map[string]bool, len(cols))
	for _, c := range cols {
		want[c] = true
	}
	out := make([]string, 0, len(cols))
	for _, name := range s.Names() {
		if want[name] {
			out = append(out, name)
		}
	}
	return out
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}

func subset(sub, super []string) bool {
	for _, s := range sub {
		if !contains(super, s) {
			return false
		}
	}
	return true
}

func union(a, b []string) []string {
	out := append([]string(nil), a...)
	for _, s := range b {
		if !contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func remove(list []string, name string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != name {
			out = append(out, s)
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
