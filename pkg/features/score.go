package features

import "math"

// Score is the three-band discretization used by the RT-variant features.
type Score int

const (
	Legit      Score = -1
	Suspicious Score = 0
	Unsafe     Score = 1
)

func (s Score) String() string {
	switch s {
	case Legit:
		return "legit"
	case Suspicious:
		return "suspicious"
	case Unsafe:
		return "unsafe"
	default:
		return "unknown"
	}
}

// Discretize bands a percentage in [0,100]: below 20 is legit, 20 to 50
// inclusive is suspicious, above 50 is unsafe. NaN is treated like an
// empty denominator.
func Discretize(pct float64) Score {
	switch {
	case math.IsNaN(pct), pct < 20:
		return Legit
	case pct <= 50:
		return Suspicious
	default:
		return Unsafe
	}
}

// DiscretizeCount computes count/total as a percentage and bands it. No
// applicable elements (total == 0) is legit by absence.
func DiscretizeCount(count, total int) Score {
	if total <= 0 {
		return Legit
	}
	return Discretize(float64(count) * 100 / float64(total))
}
