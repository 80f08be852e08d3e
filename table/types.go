// Package table defines the in-memory columnar containers shared by the
// planner and the executor: typed columns, bounded batches, schemas and
// materialized result tables.
//
// A Batch is the atomic unit of transfer through the streaming executor.
// Every column in a batch holds the same number of values, and the number of
// rows never exceeds the chunk size the executor was configured with.
package table

import "fmt"

// Type is the logical type of a column.
type Type int

const (
	Float Type = iota
	Int
	String
	Bool
)

// String returns the lowercase type name.
func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Int:
		return "int"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Numeric reports whether values of the type can feed numeric reducers.
func (t Type) Numeric() bool {
	return t == Float || t == Int
}

// Column is a named, typed, ordered sequence of values. A nil entry is a
// null. A column is owned exclusively by the batch or table holding it.
type Column struct {
	Name   string
	Type   Type
	Values []any
}

// Batch is a bounded slice of rows across a fixed column set.
type Batch struct {
	Columns []Column
}

// Len returns the number of rows in the batch.
func (b Batch) Len() int {
	if len(b.Columns) == 0 {
		return 0
	}
	return len(b.Columns[0].Values)
}

// Col returns the column with the given name.
func (b Batch) Col(name string) (Column, bool) {
	for _, c := range b.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Row materializes row i as a name to value map.
func (b Batch) Row(i int) map[string]any {
	row := make(map[string]any, len(b.Columns))
	for _, c := range b.Columns {
		row[c.Name] = c.Values[i]
	}
	return row
}

// Table is a named ordered sequence of batches sharing one schema.
type Table struct {
	Name    string
	Schema  *Schema
	Batches []Batch
}

// NumRows returns the total row count across all batches.
func (t *Table) NumRows() int {
	n := 0
	for _, b := range t.Batches {
		n += b.Len()
	}
	return n
}

// Rows materializes every row of the table, in order, as name to value maps.
// Intended for formatting and tests, not for bulk processing.
func (t *Table) Rows() []map[string]any {
	rows := make([]map[string]any, 0, t.NumRows())
	for _, b := range t.Batches {
		for i := 0; i < b.Len(); i++ {
			rows = append(rows, b.Row(i))
		}
	}
	return rows
}
