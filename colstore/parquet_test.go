package colstore

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/lazytable/lazytable/table"
)

func patientSchema() *table.Schema {
	return table.NewSchema(
		table.Field{Name: "BMI", Type: table.Float},
		table.Field{Name: "Glucose", Type: table.Float},
		table.Field{Name: "Age", Type: table.Int},
	)
}

func patientBatch(rows ...[3]any) table.Batch {
	b := table.Batch{Columns: []table.Column{
		{Name: "BMI", Type: table.Float},
		{Name: "Glucose", Type: table.Float},
		{Name: "Age", Type: table.Int},
	}}
	for _, r := range rows {
		for i := range b.Columns {
			b.Columns[i].Values = append(b.Columns[i].Values, r[i])
		}
	}
	return b
}

// writeFixture persists a small patient file and returns its path.
func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patients.parquet")
	batch := patientBatch(
		[3]any{22.5, 110.0, int64(31)},
		[3]any{31.0, 140.0, int64(45)},
		[3]any{nil, 95.0, int64(28)},
		[3]any{17.9, 88.0, int64(19)},
	)
	if err := Write(path, patientSchema(), []table.Batch{batch}); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// drain pulls an iterator to exhaustion and concatenates the rows.
func drain(t *testing.T, it BatchIter) ([]table.Batch, int) {
	t.Helper()
	var batches []table.Batch
	rows := 0
	for {
		b, err := it.Next()
		if err == io.EOF {
			return batches, rows
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		batches = append(batches, b)
		rows += b.Len()
	}
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.parquet"))
	if !errors.Is(err, table.ErrIO) {
		t.Errorf("got %v, want table.ErrIO", err)
	}
}

func TestOpenNotParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.parquet")
	if err := os.WriteFile(path, []byte("this is not parquet"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if !errors.Is(err, table.ErrIO) {
		t.Errorf("got %v, want table.ErrIO", err)
	}
}

func TestRoundTrip(t *testing.T) {
	path := writeFixture(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	if !h.Schema().Equal(patientSchema()) {
		t.Fatalf("schema %v, want %v", h.Schema().Names(), patientSchema().Names())
	}

	batches, rows := drain(t, h.ReadBatches(nil, 100))
	if rows != 4 {
		t.Fatalf("got %d rows, want 4", rows)
	}
	bmi, ok := batches[0].Col("BMI")
	if !ok {
		t.Fatal("missing BMI column")
	}
	want := []any{22.5, 31.0, nil, 17.9}
	if !reflect.DeepEqual(bmi.Values, want) {
		t.Errorf("BMI = %v, want %v", bmi.Values, want)
	}
}

func TestColumnProjection(t *testing.T) {
	path := writeFixture(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	batches, _ := drain(t, h.ReadBatches([]string{"Age"}, 100))
	b := batches[0]
	if len(b.Columns) != 1 || b.Columns[0].Name != "Age" {
		t.Fatalf("projected columns %v, want [Age]", b.Columns)
	}
	if want := []any{int64(31), int64(45), int64(28), int64(19)}; !reflect.DeepEqual(b.Columns[0].Values, want) {
		t.Errorf("Age = %v, want %v", b.Columns[0].Values, want)
	}
}

func TestChunkSizing(t *testing.T) {
	path := writeFixture(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	batches, rows := drain(t, h.ReadBatches(nil, 3))
	if rows != 4 {
		t.Fatalf("got %d rows, want 4", rows)
	}
	if len(batches) != 2 || batches[0].Len() != 3 || batches[1].Len() != 1 {
		sizes := make([]int, len(batches))
		for i, b := range batches {
			sizes[i] = b.Len()
		}
		t.Errorf("batch sizes %v, want [3 1]", sizes)
	}
}

func TestReadBatchesRestarts(t *testing.T) {
	path := writeFixture(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	_, first := drain(t, h.ReadBatches(nil, 2))
	_, second := drain(t, h.ReadBatches(nil, 2))
	if first != 4 || second != 4 {
		t.Errorf("passes read %d and %d rows, want 4 each", first, second)
	}
}

func TestClosedHandle(t *testing.T) {
	path := writeFixture(t)

	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	it := h.ReadBatches(nil, 2)
	if _, err := it.Next(); err != nil {
		t.Fatalf("first pull: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := it.Next(); !errors.Is(err, table.ErrIO) {
		t.Errorf("pull after close: got %v, want table.ErrIO", err)
	}
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	if err := Write(path, patientSchema(), nil); err != nil {
		t.Fatalf("write: %v", err)
	}

	h, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	_, rows := drain(t, h.ReadBatches(nil, 10))
	if rows != 0 {
		t.Errorf("got %d rows, want 0", rows)
	}
}
