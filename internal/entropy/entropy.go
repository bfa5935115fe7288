// Package entropy provides the random source used for reply delays and
// reply selection.
package entropy

import "math/rand"

// Source is the subset of *rand.Rand the application needs.
// Implementations must be safe for concurrent use.
type Source interface {
	IntN(n int) int
	Float64() float64
}

type systemSource struct{}

// System returns a Source backed by the math/rand/v2 top-level functions.
func System() Source {
	return systemSource{}
}

func (systemSource) IntN(n int) int   { return rand.Intn(n) }
func (systemSource) Float64() float64 { return rand.Float64() }

// Fixed always returns the same values. Useful to make delays and picks
// deterministic.
type Fixed struct {
	Index    int
	Fraction float64
}

func (f Fixed) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	if f.Index < 0 {
		return 0
	}
	return f.Index % n
}

func (f Fixed) Float64() float64 {
	switch {
	case f.Fraction < 0:
		return 0
	case f.Fraction >= 1:
		return 0.999999
	}
	return f.Fraction
}
