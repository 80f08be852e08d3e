package colstore

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/lazytable/lazytable/table"
)

// Write persists a sequence of batches to a parquet file. Every column is
// written as an optional leaf so null values survive the round trip. Fails
// with table.ErrIO on any write failure; a partially written file is not
// guaranteed consistent and callers must treat failure as total.
func Write(path string, schema *table.Schema, batches []table.Batch) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", table.ErrIO, path, err)
	}

	group := parquet.Group{}
	for _, fld := range schema.Fields() {
		group[fld.Name] = parquetNode(fld.Type)
	}
	w := parquet.NewGenericWriter[map[string]any](f, parquet.NewSchema("row", group))

	for _, b := range batches {
		if b.Len() == 0 {
			continue
		}
		rows := make([]map[string]any, b.Len())
		for i := range rows {
			rows[i] = b.Row(i)
		}
		if _, err := w.Write(rows); err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: write %s: %v", table.ErrIO, path, err)
		}
	}

	if err := w.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: finish %s: %v", table.ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", table.ErrIO, path, err)
	}
	return nil
}

func parquetNode(t table.Type) parquet.Node {
	switch t {
	case table.Float:
		return parquet.Optional(parquet.Leaf(parquet.DoubleType))
	case table.Int:
		return parquet.Optional(parquet.Int(64))
	case table.String:
		return parquet.Optional(parquet.String())
	default:
		return parquet.Optional(parquet.Leaf(parquet.BooleanType))
	}
}
