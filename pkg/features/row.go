package features

import "math"

// Column is one named scalar of a feature row.
type Column struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Row is an ordered feature row. Column order is part of the contract with
// the classifier that consumes it.
type Row []Column

// Names returns the column names in row order.
func (r Row) Names() []string {
	names := make([]string, len(r))
	for i, c := range r {
		names[i] = c.Name
	}
	return names
}

// Get returns the value of the named column.
func (r Row) Get(name string) (float64, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return 0, false
}

// Map returns the row as a name -> value map, for JSON output.
func (r Row) Map() map[string]float64 {
	m := make(map[string]float64, len(r))
	for _, c := range r {
		m[c.Name] = c.Value
	}
	return m
}

// Finite replaces NaN and infinities with 0 so that every column is defined.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Bool maps a flag to the 0/1 encoding the classifiers were fitted on.
func Bool(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
