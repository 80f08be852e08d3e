package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/lazytable/lazytable/table"
)

// Bucket maps a numeric input onto categorical labels using half-open,
// lower-inclusive intervals over ascending bounds:
//
//	v < bounds[0]              -> labels[0]
//	bounds[i-1] <= v < bounds[i] -> labels[i]
//	v >= bounds[len-1]         -> labels[len]
//
// A boundary value belongs to the bucket above it, so with bounds
// [18.5, 25, 30] the value 30.0 maps to the last label, not the third.
// len(labels) must be len(bounds)+1; anything else fails schema validation.
func Bucket(input Expr, bounds []float64, labels []string) Expr {
	return bucketExpr{
		input:  input,
		bounds: append([]float64(nil), bounds...),
		labels: append([]string(nil), labels...),
	}
}

type bucketExpr struct {
	input  Expr
	bounds []float64
	labels []string
}

func (b bucketExpr) Columns() []string { return b.input.Columns() }

func (b bucketExpr) Type(s *table.Schema) (table.Type, error) {
	t, err := b.input.Type(s)
	if err != nil {
		return 0, err
	}
	if !t.Numeric() {
		return 0, fmt.Errorf("%w: bucket input must be numeric, got %s", table.ErrSchema, t)
	}
	if len(b.labels) != len(b.bounds)+1 {
		return 0, fmt.Errorf("%w: bucket needs %d labels for %d bounds, got %d",
			table.ErrSchema, len(b.bounds)+1, len(b.bounds), len(b.labels))
	}
	for i := 1; i < len(b.bounds); i++ {
		if b.bounds[i] <= b.bounds[i-1] {
			return 0, fmt.Errorf("%w: bucket bounds must be strictly ascending", table.ErrSchema)
		}
	}
	return table.String, nil
}

func (b bucketExpr) Eval(row map[string]any) (any, error) {
	v, err := b.input.Eval(row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	f, ok := table.AsFloat(v)
	if !ok {
		return nil, fmt.Errorf("%w: bucket input %T is not numeric", table.ErrCompute, v)
	}
	if math.IsNaN(f) {
		return nil, fmt.Errorf("%w: bucket input is NaN", table.ErrCompute)
	}
	for i, bound := range b.bounds {
		if f < bound {
			return b.labels[i], nil
		}
	}
	return b.labels[len(b.bounds)], nil
}

func (b bucketExpr) String() string {
	parts := make([]string, len(b.bounds))
	for i, bound := range b.bounds {
		parts[i] = fmt.Sprintf("%v", bound)
	}
	return fmt.Sprintf("bucket(%s, [%s])", b.input, strings.Join(parts, " "))
}
