// Package colstore adapts Apache Parquet files into the batch streams the
// executor pulls from.
//
// It wraps the parquet-go library: Open validates a file and exposes its
// logical schema, ReadBatches streams fixed-size batches materializing only
// the requested columns, and Write persists a batch sequence. The adapter
// performs no caching across calls; every ReadBatches call restarts from the
// beginning of the file.
package colstore

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/lazytable/lazytable/table"
)

// BatchIter yields successive batches from a columnar source. Next returns
// io.EOF once the source is exhausted; any other error is fatal to the read.
type BatchIter interface {
	Next() (table.Batch, error)
}

// Handle is an open columnar source.
//
// A handle is not safe for concurrent use. Closing it makes every subsequent
// batch pull fail with table.ErrIO, which is the supported way to abort an
// in-flight pipeline run.
type Handle struct {
	path   string
	file   *os.File
	pqFile *parquet.File
	schema *table.Schema
	closed bool
}

// Open opens a parquet file for batched reading. Fails with table.ErrIO if
// the path is missing or the file is not readable parquet.
func Open(path string) (*Handle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", table.ErrIO, path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", table.ErrIO, path, err)
	}

	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s is not readable parquet: %v", table.ErrIO, path, err)
	}

	schema, err := logicalSchema(pqFile.Schema())
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	return &Handle{
		path:   path,
		file:   file,
		pqFile: pqFile,
		schema: schema,
	}, nil
}

// Schema returns the logical schema of the source.
func (h *Handle) Schema() *table.Schema {
	return h.schema
}

// Path returns the path the handle was opened from.
func (h *Handle) Path() string {
	return h.path
}

// Close releases the handle. Safe to call more than once. Batch iterators
// obtained from the handle fail with table.ErrIO after Close.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if err := h.file.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", table.ErrIO, h.path, err)
	}
	return nil
}

// ReadBatches starts a fresh pass over the file, yielding batches of at most
// chunkSize rows with only the requested columns materialized. An empty
// column list reads every column. The sequence is finite and restartable per
// call, not resumable mid-iteration.
func (h *Handle) ReadBatches(columns []string, chunkSize int) BatchIter {
	if h.closed {
		return errIter{err: fmt.Errorf("%w: %s: handle closed", table.ErrIO, h.path)}
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	if len(columns) == 0 {
		columns = h.schema.Names()
	}

	fields := make([]table.Field, 0, len(columns))
	group := parquet.Group{}
	fileFields := h.pqFile.Schema().Fields()
	for _, name := range columns {
		f, ok := h.schema.Field(name)
		if !ok {
			return errIter{err: fmt.Errorf("%w: unknown column %q in %s", table.ErrSchema, name, h.path)}
		}
		fields = append(fields, f)
		for _, pf := range fileFields {
			if pf.Name() == name {
				group[name] = pf
				break
			}
		}
	}

	// A projected reader materializes only the requested leaf columns.
	projected := parquet.NewSchema(h.pqFile.Schema().Name(), group)
	return &batchIter{
		handle: h,
		reader: parquet.NewReader(h.pqFile, projected),
		fields: fields,
		chunk:  chunkSize,
	}
}

type batchIter struct {
	handle *Handle
	reader *parquet.Reader
	fields []table.Field
	chunk  int
	done   bool
}

func (it *batchIter) Next() (table.Batch, error) {
	if it.handle.closed {
		return table.Batch{}, fmt.Errorf("%w: %s: handle closed", table.ErrIO, it.handle.path)
	}
	if it.done {
		return table.Batch{}, io.EOF
	}

	rows := make([]map[string]any, 0, it.chunk)
	for len(rows) < it.chunk {
		row := make(map[string]any, len(it.fields))
		if err := it.reader.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				it.done = true
				break
			}
			return table.Batch{}, fmt.Errorf("%w: read %s: %v", table.ErrIO, it.handle.path, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return table.Batch{}, io.EOF
	}

	cols := make([]table.Column, len(it.fields))
	for i, f := range it.fields {
		values := make([]any, len(rows))
		for j, row := range rows {
			values[j] = normalize(row[f.Name])
		}
		cols[i] = table.Column{Name: f.Name, Type: f.Type, Values: values}
	}
	return table.Batch{Columns: cols}, nil
}

type errIter struct {
	err error
}

func (it errIter) Next() (table.Batch, error) {
	return table.Batch{}, it.err
}

// normalize folds the narrower representations parquet hands back into the
// canonical in-memory ones: int64, float64, string, bool or nil.
func normalize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	default:
		return val
	}
}

// logicalSchema maps a parquet schema onto the logical column types.
func logicalSchema(s *parquet.Schema) (*table.Schema, error) {
	fields := make([]table.Field, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		if len(f.Fields()) > 0 || f.Type() == nil {
			return nil, fmt.Errorf("%w: nested column %q is not supported", table.ErrIO, f.Name())
		}
		var t table.Type
		switch f.Type().Kind() {
		case parquet.Boolean:
			t = table.Bool
		case parquet.Int32, parquet.Int64:
			t = table.Int
		case parquet.Float, parquet.Double:
			t = table.Float
		case parquet.ByteArray, parquet.FixedLenByteArray:
			t = table.String
		default:
			return nil, fmt.Errorf("%w: column %q has unsupported physical type", table.ErrIO, f.Name())
		}
		fields = append(fields, table.Field{Name: f.Name(), Type: t})
	}
	return table.NewSchema(fields...), nil
}
