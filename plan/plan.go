// Package plan builds and optimizes immutable logical query plans.
//
// A plan is a chain of relational operator nodes rooted at a Scan. Building a
// plan performs pure metadata composition: each constructor validates its
// arguments against the input node's schema and computes the output schema,
// but never touches data. Nodes are immutable once built; the optimizer
// produces rewritten copies and the executor only reads them.
package plan

import (
	"fmt"
	"strings"

	"github.com/lazytable/lazytable/expr"
	"github.com/lazytable/lazytable/table"
)

// Node is one relational operator in a logical plan.
type Node interface {
	// Schema returns the schema of the batches the node produces.
	Schema() *table.Schema

	// Input returns the upstream node, or nil for a Scan.
	Input() Node

	// String renders the single operator, without its inputs.
	String() string
}

// Scan reads a columnar source. Columns is the set of columns the scan
// requests from the column store; empty means every schema column. The
// optimizer's projection pruning narrows it to the minimal set.
type Scan struct {
	Source  string
	Columns []string

	schema *table.Schema
}

// NewScan starts a plan over the named source with its full schema.
func NewScan(source string, schema *table.Schema) *Scan {
	return &Scan{Source: source, schema: schema}
}

func (s *Scan) Schema() *table.Schema { return s.schema }
func (s *Scan) Input() Node           { return nil }

func (s *Scan) String() string {
	if len(s.Columns) == 0 {
		return fmt.Sprintf("scan(%s)", s.Source)
	}
	return fmt.Sprintf("scan(%s, cols=[%s])", s.Source, strings.Join(s.Columns, " "))
}

// scanWith copies the scan with a different requested column set.
func (s *Scan) scanWith(columns []string) *Scan {
	return &Scan{Source: s.Source, Columns: columns, schema: s.schema}
}

// Filter keeps the rows for which Pred is true. The output schema is the
// input schema, shared by reference.
type Filter struct {
	Pred expr.Expr

	in Node
}

// NewFilter wraps the input in a row filter. Fails with table.ErrSchema if
// the predicate references unknown columns or is not boolean.
func NewFilter(in Node, pred expr.Expr) (*Filter, error) {
	t, err := pred.Type(in.Schema())
	if err != nil {
		return nil, err
	}
	if t != table.Bool {
		return nil, fmt.Errorf("%w: filter predicate must be boolean, got %s", table.ErrSchema, t)
	}
	return &Filter{Pred: pred, in: in}, nil
}

func (f *Filter) Schema() *table.Schema { return f.in.Schema() }
func (f *Filter) Input() Node           { return f.in }
func (f *Filter) String() string        { return fmt.Sprintf("filter(%s)", f.Pred) }

// Derive appends one computed column per row.
type Derive struct {
	Name string
	Expr expr.Expr
	// ColType is the declared type of the derived column; the executor
	// rejects values that contradict it.
	ColType table.Type

	in     Node
	schema *table.Schema
}

// NewDerive wraps the input in a derived-column operator. The column type is
// taken from the expression. Fails with table.ErrSchema if the name collides
// with an existing column or the expression does not validate.
func NewDerive(in Node, name string, e expr.Expr) (*Derive, error) {
	t, err := e.Type(in.Schema())
	if err != nil {
		return nil, err
	}
	schema, err := in.Schema().Extend(table.Field{Name: name, Type: t})
	if err != nil {
		return nil, err
	}
	return &Derive{Name: name, Expr: e, ColType: t, in: in, schema: schema}, nil
}

func (d *Derive) Schema() *table.Schema { return d.schema }
func (d *Derive) Input() Node           { return d.in }
func (d *Derive) String() string        { return fmt.Sprintf("derive(%s := %s)", d.Name, d.Expr) }

// deriveWith copies the derive onto a different input, revalidating so the
// cached schema stays consistent.
func (d *Derive) deriveWith(in Node) (*Derive, error) {
	return NewDerive(in, d.Name, d.Expr)
}

// Project keeps only the named columns, in the order given.
type Project struct {
	Columns []string

	in     Node
	schema *table.Schema
}

// NewProject wraps the input in a projection. Fails with table.ErrSchema on
// unknown columns.
func NewProject(in Node, columns []string) (*Project, error) {
	schema, err := in.Schema().Project(columns)
	if err != nil {
		return nil, err
	}
	return &Project{Columns: append([]string(nil), columns...), in: in, schema: schema}, nil
}

func (p *Project) Schema() *table.Schema { return p.schema }
func (p *Project) Input() Node           { return p.in }

func (p *Project) String() string {
	return fmt.Sprintf("project(%s)", strings.Join(p.Columns, " "))
}

// Format renders a whole plan, root first, one operator per line.
func Format(root Node) string {
	var b strings.Builder
	depth := 0
	for n := root; n != nil; n = n.Input() {
		if depth > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(n.String())
		depth++
	}
	return b.String()
}
