package output

import (
	"strings"
	"testing"

	"github.com/lazytable/lazytable/table"
)

func cohortResult() *table.Table {
	return &table.Table{
		Name: "cohort",
		Schema: table.NewSchema(
			table.Field{Name: "bmi_range", Type: table.String},
			table.Field{Name: "avg_glucose", Type: table.Float},
			table.Field{Name: "patient_count", Type: table.Int},
		),
		Batches: []table.Batch{{Columns: []table.Column{
			{Name: "bmi_range", Type: table.String, Values: []any{"Normal", "Obese"}},
			{Name: "avg_glucose", Type: table.Float, Values: []any{105.5, nil}},
			{Name: "patient_count", Type: table.Int, Values: []any{int64(2), int64(1)}},
		}}},
	}
}

func TestCSVFormat(t *testing.T) {
	var buf strings.Builder
	if err := NewCSVFormatter(&buf).Format(cohortResult()); err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "bmi_range,avg_glucose,patient_count\n" +
		"Normal,105.5,2\n" +
		"Obese,,1\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf strings.Builder
	if err := NewJSONFormatter(&buf).Format(cohortResult()); err != nil {
		t.Fatalf("format: %v", err)
	}
	want := `{"avg_glucose":105.5,"bmi_range":"Normal","patient_count":2}` + "\n" +
		`{"avg_glucose":null,"bmi_range":"Obese","patient_count":1}` + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestTextFormat(t *testing.T) {
	var buf strings.Builder
	if err := NewTextFormatter(&buf).Format(cohortResult()); err != nil {
		t.Fatalf("format: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"bmi_range", "Normal", "Obese", "105.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNewDispatch(t *testing.T) {
	tests := []struct {
		format string
		ok     bool
	}{
		{"csv", true},
		{"jsonl", true},
		{"text", true},
		{"yaml", false},
	}
	for _, tt := range tests {
		f, err := New(tt.format, &strings.Builder{})
		if tt.ok && (err != nil || f == nil) {
			t.Errorf("New(%q) = %v, %v, want formatter", tt.format, f, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("New(%q) succeeded, want error", tt.format)
		}
	}
}
