// Package exec walks an optimized logical plan and pulls batches through it.
//
// Execution is pull based and single threaded: the root operator requests a
// batch from its input, which requests from its own input, down to the scan,
// which reads from the column store at a fixed chunk size. The chunk size is
// the sole memory knob; steady-state working memory is one batch per live
// operator, except for group aggregation whose accumulator grows with the
// number of distinct group keys.
//
// End of stream is signaled by io.EOF between operators and never escapes to
// callers. Any operator error aborts the run immediately with no partial
// result.
package exec

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/lazytable/lazytable/colstore"
	"github.com/lazytable/lazytable/expr"
	"github.com/lazytable/lazytable/logutil"
	"github.com/lazytable/lazytable/plan"
	"github.com/lazytable/lazytable/table"
)

// DefaultChunkSize is the batch row limit used when Options leaves it unset.
const DefaultChunkSize = 4096

// BatchSource is the column-store surface the executor scans from.
// *colstore.Handle implements it.
type BatchSource interface {
	ReadBatches(columns []string, chunkSize int) colstore.BatchIter
}

// Options configures one pipeline run.
type Options struct {
	// ChunkSize bounds the rows per batch. Zero means DefaultChunkSize.
	ChunkSize int
}

// Run executes the plan against the source and materializes the result.
func Run(root plan.Node, src BatchSource, opts Options) (*table.Table, error) {
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	op, err := build(root, src, chunk)
	if err != nil {
		return nil, err
	}

	var batches []table.Batch
	for {
		b, err := op.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return &table.Table{Schema: root.Schema(), Batches: batches}, nil
}

// operator is one node of the running pipeline. next returns io.EOF at
// exhaustion.
type operator interface {
	next() (table.Batch, error)
}

// build is the single dispatch point from plan nodes to operators.
func build(n plan.Node, src BatchSource, chunk int) (operator, error) {
	switch n := n.(type) {
	case *plan.Scan:
		return &scanOp{src: src, node: n, chunk: chunk}, nil
	case *plan.Filter:
		in, err := build(n.Input(), src, chunk)
		if err != nil {
			return nil, err
		}
		return &filterOp{in: in, pred: n.Pred}, nil
	case *plan.Derive:
		in, err := build(n.Input(), src, chunk)
		if err != nil {
			return nil, err
		}
		return &deriveOp{in: in, node: n}, nil
	case *plan.Project:
		in, err := build(n.Input(), src, chunk)
		if err != nil {
			return nil, err
		}
		return &projectOp{in: in, node: n}, nil
	case *plan.GroupAggregate:
		in, err := build(n.Input(), src, chunk)
		if err != nil {
			return nil, err
		}
		return &groupOp{
			in:    in,
			node:  n,
			chunk: chunk,
			acc:   newAccumulator(n.GroupBy, n.Aggs),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported plan node %T", table.ErrSchema, n)
	}
}

type scanOp struct {
	src     BatchSource
	node    *plan.Scan
	chunk   int
	iter    colstore.BatchIter
	batches int
	rows    int
}

func (s *scanOp) next() (table.Batch, error) {
	if s.iter == nil {
		s.iter = s.src.ReadBatches(s.node.Columns, s.chunk)
	}
	b, err := s.iter.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			logutil.Debug("scan exhausted",
				zap.String("source", s.node.Source),
				zap.Int("batches", s.batches),
				zap.Int("rows", s.rows))
			return table.Batch{}, io.EOF
		}
		return table.Batch{}, err
	}
	s.batches++
	s.rows += b.Len()
	return b, nil
}

type filterOp struct {
	in      operator
	pred    expr.Expr
	dropped int
}

func (f *filterOp) next() (table.Batch, error) {
	for {
		b, err := f.in.next()
		if err != nil {
			if errors.Is(err, io.EOF) && f.dropped > 0 {
				logutil.Debug("filter done", zap.Int("rows_dropped", f.dropped))
			}
			return table.Batch{}, err
		}

		keep := make([]int, 0, b.Len())
		for i := 0; i < b.Len(); i++ {
			v, err := f.pred.Eval(b.Row(i))
			if err != nil {
				return table.Batch{}, err
			}
			truth, ok := v.(bool)
			if !ok {
				return table.Batch{}, fmt.Errorf("%w: predicate produced %T, want bool", table.ErrCompute, v)
			}
			if truth {
				keep = append(keep, i)
			}
		}
		f.dropped += b.Len() - len(keep)

		// A batch where nothing passed is swallowed, not forwarded;
		// downstream only ever sees rows or true end of input.
		if len(keep) == 0 {
			continue
		}
		if len(keep) == b.Len() {
			return b, nil
		}

		cols := make([]table.Column, len(b.Columns))
		for ci, c := range b.Columns {
			values := make([]any, len(keep))
			for vi, ri := range keep {
				values[vi] = c.Values[ri]
			}
			cols[ci] = table.Column{Name: c.Name, Type: c.Type, Values: values}
		}
		return table.Batch{Columns: cols}, nil
	}
}

type deriveOp struct {
	in   operator
	node *plan.Derive
}

func (d *deriveOp) next() (table.Batch, error) {
	b, err := d.in.next()
	if err != nil {
		return table.Batch{}, err
	}

	values := make([]any, b.Len())
	for i := 0; i < b.Len(); i++ {
		v, err := d.node.Expr.Eval(b.Row(i))
		if err != nil {
			return table.Batch{}, err
		}
		if !table.Conforms(v, d.node.ColType) {
			return table.Batch{}, fmt.Errorf("%w: derived column %q produced %T, want %s",
				table.ErrCompute, d.node.Name, v, d.node.ColType)
		}
		values[i] = v
	}

	cols := make([]table.Column, 0, len(b.Columns)+1)
	cols = append(cols, b.Columns...)
	cols = append(cols, table.Column{Name: d.node.Name, Type: d.node.ColType, Values: values})
	return table.Batch{Columns: cols}, nil
}

type projectOp struct {
	in   operator
	node *plan.Project
}

func (p *projectOp) next() (table.Batch, error) {
	b, err := p.in.next()
	if err != nil {
		return table.Batch{}, err
	}

	cols := make([]table.Column, 0, len(p.node.Columns))
	for _, name := range p.node.Columns {
		c, ok := b.Col(name)
		if !ok {
			return table.Batch{}, fmt.Errorf("%w: column %q missing from input batch", table.ErrCompute, name)
		}
		cols = append(cols, c)
	}
	return table.Batch{Columns: cols}, nil
}

type groupOp struct {
	in      operator
	node    *plan.GroupAggregate
	chunk   int
	acc     *accumulator
	out     []table.Batch
	emitted int
	drained bool
}

func (g *groupOp) next() (table.Batch, error) {
	if !g.drained {
		for {
			b, err := g.in.next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return table.Batch{}, err
			}
			for i := 0; i < b.Len(); i++ {
				if err := g.acc.update(b.Row(i)); err != nil {
					return table.Batch{}, err
				}
			}
		}
		g.out = g.acc.finalize(g.node.Schema(), g.chunk)
		g.drained = true
		logutil.Debug("aggregation finalized", zap.Int("groups", g.acc.numGroups()))
	}

	if g.emitted >= len(g.out) {
		return table.Batch{}, io.EOF
	}
	b := g.out[g.emitted]
	g.emitted++
	return b, nil
}
