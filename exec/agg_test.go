package exec

import (
	"reflect"
	"testing"

	"github.com/lazytable/lazytable/plan"
	"github.com/lazytable/lazytable/table"
)

func TestSinglePassAggregate(t *testing.T) {
	schema := table.NewSchema(
		table.Field{Name: "k", Type: table.String},
		table.Field{Name: "v", Type: table.Float},
	)
	src := &memSource{schema: schema, rows: []map[string]any{
		{"k": "A", "v": 10.0},
		{"k": "A", "v": 20.0},
		{"k": "B", "v": 5.0},
	}}

	g, err := plan.NewGroupAggregate(plan.NewScan("mem", schema), []string{"k"}, []plan.AggSpec{
		{Reducer: plan.Count, As: "count"},
		{Column: "v", Reducer: plan.Avg, As: "avg"},
	})
	if err != nil {
		t.Fatalf("build aggregate: %v", err)
	}

	result, err := Run(g, src, Options{ChunkSize: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []map[string]any{
		{"k": "A", "count": int64(2), "avg": 15.0},
		{"k": "B", "count": int64(1), "avg": 5.0},
	}
	if got := result.Rows(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestAggregateFirstSeenOrder(t *testing.T) {
	acc := newAccumulator([]string{"k"}, []plan.AggSpec{{Reducer: plan.Count, As: "n"}})
	for _, k := range []string{"c", "a", "b", "a", "c", "c"} {
		if err := acc.update(map[string]any{"k": k}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	schema := table.NewSchema(
		table.Field{Name: "k", Type: table.String},
		table.Field{Name: "n", Type: table.Int},
	)
	batches := acc.finalize(schema, 10)
	if len(batches) != 1 {
		t.Fatalf("got %d batches, want 1", len(batches))
	}

	keys, _ := batches[0].Col("k")
	if want := []any{"c", "a", "b"}; !reflect.DeepEqual(keys.Values, want) {
		t.Errorf("group order %v, want first-seen %v", keys.Values, want)
	}
	counts, _ := batches[0].Col("n")
	if want := []any{int64(3), int64(2), int64(1)}; !reflect.DeepEqual(counts.Values, want) {
		t.Errorf("counts %v, want %v", counts.Values, want)
	}
}

func TestAggregateStatistics(t *testing.T) {
	acc := newAccumulator([]string{"k"}, []plan.AggSpec{
		{Column: "v", Reducer: plan.Sum, As: "sum"},
		{Column: "v", Reducer: plan.Min, As: "min"},
		{Column: "v", Reducer: plan.Max, As: "max"},
		{Column: "v", Reducer: plan.Count, As: "nonnull"},
	})
	values := []any{3.0, nil, 1.0, 2.0}
	for _, v := range values {
		if err := acc.update(map[string]any{"k": "g", "v": v}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	schema := table.NewSchema(
		table.Field{Name: "k", Type: table.String},
		table.Field{Name: "sum", Type: table.Float},
		table.Field{Name: "min", Type: table.Float},
		table.Field{Name: "max", Type: table.Float},
		table.Field{Name: "nonnull", Type: table.Int},
	)
	row := acc.finalize(schema, 10)[0].Row(0)

	if row["sum"] != 6.0 {
		t.Errorf("sum = %v, want 6", row["sum"])
	}
	if row["min"] != 1.0 || row["max"] != 3.0 {
		t.Errorf("min/max = %v/%v, want 1/3", row["min"], row["max"])
	}
	// COUNT over a column skips nulls; COUNT with no column counts rows.
	if row["nonnull"] != int64(3) {
		t.Errorf("count = %v, want 3", row["nonnull"])
	}
}

func TestAggregateOutputChunking(t *testing.T) {
	acc := newAccumulator([]string{"k"}, []plan.AggSpec{{Reducer: plan.Count, As: "n"}})
	for i := 0; i < 10; i++ {
		if err := acc.update(map[string]any{"k": int64(i)}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	schema := table.NewSchema(
		table.Field{Name: "k", Type: table.Int},
		table.Field{Name: "n", Type: table.Int},
	)
	batches := acc.finalize(schema, 4)
	if len(batches) != 3 {
		t.Fatalf("got %d batches, want 3", len(batches))
	}
	sizes := []int{batches[0].Len(), batches[1].Len(), batches[2].Len()}
	if !reflect.DeepEqual(sizes, []int{4, 4, 2}) {
		t.Errorf("batch sizes %v, want [4 4 2]", sizes)
	}
}

func TestGroupAggregateEmptyInput(t *testing.T) {
	schema := table.NewSchema(
		table.Field{Name: "k", Type: table.String},
		table.Field{Name: "v", Type: table.Float},
	)
	src := &memSource{schema: schema}

	g, err := plan.NewGroupAggregate(plan.NewScan("mem", schema), []string{"k"}, []plan.AggSpec{
		{Reducer: plan.Count, As: "n"},
	})
	if err != nil {
		t.Fatalf("build aggregate: %v", err)
	}

	result, err := Run(g, src, Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.NumRows() != 0 {
		t.Errorf("got %d rows for empty input, want 0", result.NumRows())
	}
}
