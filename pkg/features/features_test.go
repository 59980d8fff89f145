package features

import (
	"errors"
	"math"
	"testing"
)

func TestDiscretizeBands(t *testing.T) {
	cases := []struct {
		pct  float64
		want Score
	}{
		{0, Legit},
		{19.9, Legit},
		{20, Suspicious},
		{35, Suspicious},
		{50, Suspicious},
		{50.1, Unsafe},
		{100, Unsafe},
		{math.NaN(), Legit},
		{math.Inf(1), Unsafe},
	}
	for _, tc := range cases {
		if got := Discretize(tc.pct); got != tc.want {
			t.Errorf("Discretize(%v) = %v, want %v", tc.pct, got, tc.want)
		}
	}
}

func TestDiscretizeCount(t *testing.T) {
	cases := []struct {
		count, total int
		want         Score
	}{
		{0, 0, Legit},
		{1, 5, Suspicious},
		{1, 2, Suspicious},
		{1, 1, Unsafe},
		{0, 3, Legit},
		{3, 5, Unsafe},
	}
	for _, tc := range cases {
		if got := DiscretizeCount(tc.count, tc.total); got != tc.want {
			t.Errorf("DiscretizeCount(%d, %d) = %v, want %v", tc.count, tc.total, got, tc.want)
		}
	}
}

func TestAssemble(t *testing.T) {
	s := NewSchema("url", []string{"a", "b"})
	vec, err := s.Assemble(Row{{Name: "a", Value: 1.5}, {Name: "b", Value: math.NaN()}})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(vec) != 2 || vec[0] != 1.5 || vec[1] != 0 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestAssembleRejectsMismatch(t *testing.T) {
	s := NewSchema("url", []string{"a", "b"})
	rows := []Row{
		{{Name: "a"}},
		{{Name: "b"}, {Name: "a"}},
		{{Name: "a"}, {Name: "b"}, {Name: "c"}},
	}
	for _, row := range rows {
		_, err := s.Assemble(row)
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("expected SchemaError for %v, got %v", row.Names(), err)
		}
	}
}
