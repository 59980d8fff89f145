package features

import "fmt"

// Schema is the fixed column list an external classifier was fitted on.
type Schema struct {
	Name    string
	Columns []string
}

// NewSchema copies columns so later mutation of the caller's slice cannot
// change the schema.
func NewSchema(name string, columns []string) Schema {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return Schema{Name: name, Columns: cols}
}

// Width is the number of columns the classifier expects.
func (s Schema) Width() int {
	return len(s.Columns)
}

// SchemaError reports a row or vector that does not match a classifier's
// schema. It is never recoverable: padding or truncating would silently
// corrupt predictions.
type SchemaError struct {
	Schema string
	Want   int
	Got    int
	Column string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("features: %s schema mismatch at column %q", e.Schema, e.Column)
	}
	return fmt.Sprintf("features: %s schema expects %d columns, got %d", e.Schema, e.Want, e.Got)
}

// Assemble checks that row carries exactly the schema's columns in schema
// order and returns the numeric vector for the classifier.
func (s Schema) Assemble(row Row) ([]float32, error) {
	if len(row) != len(s.Columns) {
		return nil, &SchemaError{Schema: s.Name, Want: len(s.Columns), Got: len(row)}
	}
	vec := make([]float32, len(row))
	for i, col := range row {
		if col.Name != s.Columns[i] {
			return nil, &SchemaError{Schema: s.Name, Want: len(s.Columns), Got: len(row), Column: col.Name}
		}
		vec[i] = float32(Finite(col.Value))
	}
	return vec, nil
}
