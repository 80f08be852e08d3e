// Package pipeline is the embedding surface of the analytics engine.
//
// A Spec describes one cohort-style run over a columnar dataset: reject
// outlier rows by a numeric field, bucket that field into categorical
// ranges, and compute grouped statistics, all in one streaming pass. Run
// builds the lazy plan, optimizes it and executes it against the source.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/lazytable/lazytable/colstore"
	"github.com/lazytable/lazytable/exec"
	"github.com/lazytable/lazytable/expr"
	"github.com/lazytable/lazytable/logutil"
	"github.com/lazytable/lazytable/plan"
	"github.com/lazytable/lazytable/table"
)

// BucketSpec derives a categorical column from a numeric one. Bounds are
// ascending; Labels has one more entry than Bounds. Boundary values belong
// to the bucket above the bound.
type BucketSpec struct {
	Column string
	As     string
	Bounds []float64
	Labels []string
}

// Spec is one pipeline invocation.
type Spec struct {
	// Source is the path of the columnar dataset.
	Source string

	// Field is the numeric column screened for outliers; rows with
	// Field < KeepMin or Field > KeepMax are rejected.
	Field   string
	KeepMin float64
	KeepMax float64

	// Columns optionally narrows the working column set after the
	// outlier filter. Empty keeps every source column.
	Columns []string

	// Bucket derives the categorical grouping column.
	Bucket BucketSpec

	// GroupBy names the grouping column, normally Bucket.As.
	GroupBy string

	// Aggs are the statistics computed per group.
	Aggs []plan.AggSpec

	// ChunkSize bounds batch row counts. Zero means the executor default.
	ChunkSize int
}

// BuildPlan composes the logical plan for the spec against a source schema.
// It performs no I/O. Fails with table.ErrSchema on any invalid reference.
func BuildPlan(spec Spec, schema *table.Schema) (plan.Node, error) {
	var root plan.Node = plan.NewScan(spec.Source, schema)

	pred := expr.And(
		expr.Cmp(expr.Col(spec.Field), expr.Ge, expr.Lit(spec.KeepMin)),
		expr.Cmp(expr.Col(spec.Field), expr.Le, expr.Lit(spec.KeepMax)),
	)
	root, err := plan.NewFilter(root, pred)
	if err != nil {
		return nil, err
	}

	if len(spec.Columns) > 0 {
		root, err = plan.NewProject(root, spec.Columns)
		if err != nil {
			return nil, err
		}
	}

	root, err = plan.NewDerive(root, spec.Bucket.As,
		expr.Bucket(expr.Col(spec.Bucket.Column), spec.Bucket.Bounds, spec.Bucket.Labels))
	if err != nil {
		return nil, err
	}

	return plan.NewGroupAggregate(root, []string{spec.GroupBy}, spec.Aggs)
}

// Run opens the source, builds and optimizes the plan, and streams it to a
// materialized result table. Any error aborts the run with no result.
func Run(spec Spec) (*table.Table, error) {
	h, err := colstore.Open(spec.Source)
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()

	root, err := BuildPlan(spec, h.Schema())
	if err != nil {
		return nil, err
	}
	optimized := plan.Optimize(root)
	logutil.Debug("plan optimized", zap.String("plan", plan.Format(optimized)))

	result, err := exec.Run(optimized, h, exec.Options{ChunkSize: spec.ChunkSize})
	if err != nil {
		return nil, err
	}
	result.Name = spec.Source
	logutil.Info("pipeline finished",
		zap.String("source", spec.Source),
		zap.Int("groups", result.NumRows()))
	return result, nil
}

// Summary totals an integer column across the result, such as a per-group
// row count.
func Summary(t *table.Table, column string) (int64, error) {
	var total int64
	for _, b := range t.Batches {
		c, ok := b.Col(column)
		if !ok {
			return 0, fmt.Errorf("%w: unknown column %q", table.ErrSchema, column)
		}
		for _, v := range c.Values {
			f, ok := table.AsFloat(v)
			if !ok {
				return 0, fmt.Errorf("%w: %q holds non-numeric %T", table.ErrCompute, column, v)
			}
			total += int64(f)
		}
	}
	return total, nil
}
