package table

import "fmt"

// Field is a single named, typed slot in a schema.
type Field struct {
	Name string
	Type Type
}

// Schema is an ordered mapping from column name to logical type. Schemas are
// immutable: Project and Extend return new schemas. All plan nodes downstream
// of a scan or derive share the producing node's schema by reference.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from the given fields, preserving their order.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields: append([]Field(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, f := range s.fields {
		s.index[f.Name] = i
	}
	return s
}

// Fields returns the schema fields in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema contains a field with the given name.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Equal reports whether both schemas have the same fields in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if o == nil || len(s.fields) != len(o.fields) {
		return false
	}
	for i, f := range s.fields {
		if o.fields[i] != f {
			return false
		}
	}
	return true
}

// Project returns a new schema containing only the named fields, in the
// order given. Fails with ErrSchema if a name is unknown.
func (s *Schema) Project(names []string) (*Schema, error) {
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		f, ok := s.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown column %q", ErrSchema, name)
		}
		fields = append(fields, f)
	}
	return NewSchema(fields...), nil
}

// Extend returns a new schema with the field appended. Fails with ErrSchema
// if the name is already taken.
func (s *Schema) Extend(f Field) (*Schema, error) {
	if s.Has(f.Name) {
		return nil, fmt.Errorf("%w: duplicate column %q", ErrSchema, f.Name)
	}
	return NewSchema(append(append([]Field(nil), s.fields...), f)...), nil
}
