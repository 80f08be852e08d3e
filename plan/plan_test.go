package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazytable/lazytable/expr"
	"github.com/lazytable/lazytable/table"
)

func patientSchema() *table.Schema {
	return table.NewSchema(
		table.Field{Name: "BMI", Type: table.Float},
		table.Field{Name: "Glucose", Type: table.Float},
		table.Field{Name: "Age", Type: table.Int},
		table.Field{Name: "Name", Type: table.String},
	)
}

func TestBuilderSchemaPropagation(t *testing.T) {
	scan := NewScan("patients.parquet", patientSchema())

	f, err := NewFilter(scan, expr.Cmp(expr.Col("BMI"), expr.Ge, expr.Lit(10.0)))
	require.NoError(t, err)
	assert.True(t, f.Schema().Equal(scan.Schema()))

	p, err := NewProject(f, []string{"BMI", "Glucose"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BMI", "Glucose"}, p.Schema().Names())

	d, err := NewDerive(p, "bmi_range",
		expr.Bucket(expr.Col("BMI"), []float64{25}, []string{"low", "high"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"BMI", "Glucose", "bmi_range"}, d.Schema().Names())
	fld, ok := d.Schema().Field("bmi_range")
	require.True(t, ok)
	assert.Equal(t, table.String, fld.Type)

	g, err := NewGroupAggregate(d, []string{"bmi_range"}, []AggSpec{
		{Column: "Glucose", Reducer: Avg, As: "avg_glucose"},
		{Reducer: Count, As: "n"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bmi_range", "avg_glucose", "n"}, g.Schema().Names())
}

func TestBuilderRejectsUnknownColumns(t *testing.T) {
	scan := NewScan("p", patientSchema())

	_, err := NewFilter(scan, expr.Cmp(expr.Col("Weight"), expr.Gt, expr.Lit(1.0)))
	assert.True(t, errors.Is(err, table.ErrSchema))

	_, err = NewProject(scan, []string{"BMI", "Weight"})
	assert.True(t, errors.Is(err, table.ErrSchema))

	_, err = NewGroupAggregate(scan, []string{"Weight"}, []AggSpec{{Reducer: Count, As: "n"}})
	assert.True(t, errors.Is(err, table.ErrSchema))

	_, err = NewGroupAggregate(scan, []string{"Name"}, []AggSpec{
		{Column: "Weight", Reducer: Sum, As: "s"},
	})
	assert.True(t, errors.Is(err, table.ErrSchema))
}

func TestBuilderRejectsIncompatibleTypes(t *testing.T) {
	scan := NewScan("p", patientSchema())

	// Averaging a textual column is a schema error, not a runtime one.
	_, err := NewGroupAggregate(scan, []string{"Name"}, []AggSpec{
		{Column: "Name", Reducer: Avg, As: "avg_name"},
	})
	assert.True(t, errors.Is(err, table.ErrSchema))

	_, err = NewFilter(scan, expr.Col("BMI"))
	assert.True(t, errors.Is(err, table.ErrSchema), "non-boolean predicate")

	_, err = NewDerive(scan, "BMI", expr.Lit(1.0))
	assert.True(t, errors.Is(err, table.ErrSchema), "duplicate column name")
}

func TestAggSpecOutputTypes(t *testing.T) {
	scan := NewScan("p", patientSchema())
	g, err := NewGroupAggregate(scan, []string{"Name"}, []AggSpec{
		{Reducer: Count, As: "n"},
		{Column: "Age", Reducer: Sum, As: "age_sum"},
		{Column: "Age", Reducer: Min, As: "age_min"},
		{Column: "Name", Reducer: Max, As: "name_max"},
	})
	require.NoError(t, err)

	want := map[string]table.Type{
		"n":        table.Int,
		"age_sum":  table.Float,
		"age_min":  table.Int,
		"name_max": table.String,
	}
	for name, typ := range want {
		f, ok := g.Schema().Field(name)
		require.True(t, ok, name)
		assert.Equal(t, typ, f.Type, name)
	}
}

func TestParseReducer(t *testing.T) {
	r, err := ParseReducer("AVG")
	require.NoError(t, err)
	assert.Equal(t, Avg, r)

	r, err = ParseReducer("mean")
	require.NoError(t, err)
	assert.Equal(t, Avg, r)

	_, err = ParseReducer("median")
	assert.True(t, errors.Is(err, table.ErrSchema))
}
