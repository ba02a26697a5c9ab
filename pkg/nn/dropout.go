package nn

import "gonum.org/v1/gonum/mat"

// Dropout zeroes entries with probability P and rescales survivors by 1/(1-P).
type Dropout struct {
	P float64
}

// Forward is the identity in deterministic mode. In stochastic mode it
// modifies x in place and returns it.
func (d Dropout) Forward(x *mat.Dense, m Mode) *mat.Dense {
	if !m.Stochastic || d.P <= 0 {
		return x
	}
	if d.P >= 1 {
		x.Zero()
		return x
	}
	keep := 1 / (1 - d.P)
	x.Apply(func(_, _ int, v float64) float64 {
		if m.Rand.Float64() < d.P {
			return 0
		}
		return v * keep
	}, x)
	return x
}
