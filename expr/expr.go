// Package expr implements the closed expression algebra evaluated by the
// streaming executor: column references, literals, comparisons, boolean
// combinators and categorical bucketing.
//
// Expressions are validated against a schema at plan-build time (Type) and
// evaluated per row at execution time (Eval). Columns exposes the input
// columns an expression reads, which is what lets the optimizer decide
// whether a filter can be pushed below another operator.
package expr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lazytable/lazytable/table"
)

// Op is a comparison operator.
type Op int

const (
	Eq Op = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// String returns the SQL-ish spelling of the operator.
func (o Op) String() string {
	switch o {
	case Eq:
		return "="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Expr is one node of the expression algebra.
type Expr interface {
	// Columns lists the input columns the expression reads, sorted and
	// deduplicated.
	Columns() []string

	// Type checks the expression against a schema and reports its result
	// type. Fails with table.ErrSchema on unknown columns or operand
	// type mismatches.
	Type(s *table.Schema) (table.Type, error)

	// Eval computes the expression over one row. Fails with
	// table.ErrCompute when a value cannot be interpreted.
	Eval(row map[string]any) (any, error)

	// String renders the expression for plan display.
	String() string
}

// Col references a column by name.
func Col(name string) Expr { return colRef{name: name} }

// Lit wraps a literal value.
func Lit(v any) Expr { return literal{value: v} }

// Cmp compares two subexpressions with the given operator.
func Cmp(left Expr, op Op, right Expr) Expr {
	return cmpExpr{left: left, op: op, right: right}
}

// And is true when every operand is true. And() with no operands is true.
func And(operands ...Expr) Expr { return boolExpr{all: true, operands: operands} }

// Or is true when at least one operand is true.
func Or(operands ...Expr) Expr { return boolExpr{all: false, operands: operands} }

// Not negates a boolean subexpression.
func Not(e Expr) Expr { return notExpr{operand: e} }

type colRef struct {
	name string
}

func (c colRef) Columns() []string { return []string{c.name} }

func (c colRef) Type(s *table.Schema) (table.Type, error) {
	f, ok := s.Field(c.name)
	if !ok {
		return 0, fmt.Errorf("%w: unknown column %q", table.ErrSchema, c.name)
	}
	return f.Type, nil
}

func (c colRef) Eval(row map[string]any) (any, error) {
	v, ok := row[c.name]
	if !ok {
		return nil, fmt.Errorf("%w: column %q missing from row", table.ErrCompute, c.name)
	}
	return v, nil
}

func (c colRef) String() string { return c.name }

type literal struct {
	value any
}

func (l literal) Columns() []string { return nil }

func (l literal) Type(*table.Schema) (table.Type, error) {
	t, ok := table.TypeOf(l.value)
	if !ok {
		return 0, fmt.Errorf("%w: unsupported literal %T", table.ErrSchema, l.value)
	}
	return t, nil
}

func (l literal) Eval(map[string]any) (any, error) { return l.value, nil }

func (l literal) String() string {
	if s, ok := l.value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", l.value)
}

type cmpExpr struct {
	left  Expr
	op    Op
	right Expr
}

func (c cmpExpr) Columns() []string {
	return mergeColumns(c.left.Columns(), c.right.Columns())
}

func (c cmpExpr) Type(s *table.Schema) (table.Type, error) {
	lt, err := c.left.Type(s)
	if err != nil {
		return 0, err
	}
	rt, err := c.right.Type(s)
	if err != nil {
		return 0, err
	}
	switch {
	case lt.Numeric() && rt.Numeric():
	case lt == table.String && rt == table.String:
	case lt == table.Bool && rt == table.Bool:
		// Booleans have no order.
		if c.op != Eq && c.op != Ne {
			return 0, fmt.Errorf("%w: %s not defined on %s", table.ErrSchema, c.op, lt)
		}
	default:
		return 0, fmt.Errorf("%w: cannot compare %s with %s", table.ErrSchema, lt, rt)
	}
	return table.Bool, nil
}

func (c cmpExpr) Eval(row map[string]any) (any, error) {
	left, err := c.left.Eval(row)
	if err != nil {
		return nil, err
	}
	right, err := c.right.Eval(row)
	if err != nil {
		return nil, err
	}
	return compare(left, c.op, right)
}

func (c cmpExpr) String() string {
	return fmt.Sprintf("%s %s %s", c.left, c.op, c.right)
}

// compare applies op to two concrete values. Null operands compare equal to
// each other and unequal to everything else; ordering against null is false.
func compare(left any, op Op, right any) (bool, error) {
	if left == nil || right == nil {
		switch op {
		case Eq:
			return left == right, nil
		case Ne:
			return left != right, nil
		}
		return false, nil
	}

	if lf, ok := table.AsFloat(left); ok {
		if rf, ok := table.AsFloat(right); ok {
			return compareFloats(lf, op, rf), nil
		}
	}
	if ls, ok := table.AsString(left); ok {
		if rs, ok := table.AsString(right); ok {
			return compareOrdered(strings.Compare(ls, rs), op), nil
		}
	}
	if lb, ok := table.AsBool(left); ok {
		if rb, ok := table.AsBool(right); ok {
			switch op {
			case Eq:
				return lb == rb, nil
			case Ne:
				return lb != rb, nil
			}
		}
	}
	return false, fmt.Errorf("%w: cannot compare %T with %T", table.ErrCompute, left, right)
}

func compareFloats(left float64, op Op, right float64) bool {
	switch op {
	case Eq:
		return left == right
	case Ne:
		return left != right
	case Lt:
		return left < right
	case Le:
		return left <= right
	case Gt:
		return left > right
	default:
		return left >= right
	}
}

func compareOrdered(cmp int, op Op) bool {
	switch op {
	case Eq:
		return cmp == 0
	case Ne:
		return cmp != 0
	case Lt:
		return cmp < 0
	case Le:
		return cmp <= 0
	case Gt:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

type boolExpr struct {
	all      bool
	operands []Expr
}

func (b boolExpr) Columns() []string {
	var cols []string
	for _, e := range b.operands {
		cols = mergeColumns(cols, e.Columns())
	}
	return cols
}

func (b boolExpr) Type(s *table.Schema) (table.Type, error) {
	for _, e := range b.operands {
		t, err := e.Type(s)
		if err != nil {
			return 0, err
		}
		if t != table.Bool {
			return 0, fmt.Errorf("%w: %s is not a boolean operand", table.ErrSchema, e)
		}
	}
	return table.Bool, nil
}

func (b boolExpr) Eval(row map[string]any) (any, error) {
	for _, e := range b.operands {
		v, err := e.Eval(row)
		if err != nil {
			return nil, err
		}
		truth, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %s produced %T, want bool", table.ErrCompute, e, v)
		}
		if truth != b.all {
			return !b.all, nil
		}
	}
	return b.all, nil
}

func (b boolExpr) String() string {
	word := " AND "
	if !b.all {
		word = " OR "
	}
	parts := make([]string, len(b.operands))
	for i, e := range b.operands {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, word) + ")"
}

type notExpr struct {
	operand Expr
}

func (n notExpr) Columns() []string { return n.operand.Columns() }

func (n notExpr) Type(s *table.Schema) (table.Type, error) {
	t, err := n.operand.Type(s)
	if err != nil {
		return 0, err
	}
	if t != table.Bool {
		return 0, fmt.Errorf("%w: NOT needs a boolean operand, got %s", table.ErrSchema, t)
	}
	return table.Bool, nil
}

func (n notExpr) Eval(row map[string]any) (any, error) {
	v, err := n.operand.Eval(row)
	if err != nil {
		return nil, err
	}
	truth, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s produced %T, want bool", table.ErrCompute, n.operand, v)
	}
	return !truth, nil
}

func (n notExpr) String() string { return "NOT " + n.operand.String() }

// mergeColumns unions two sorted column lists.
func mergeColumns(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, name := range append(append([]string(nil), a...), b...) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
