package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Linear computes y = x W^T + b for row-major inputs.
type Linear struct {
	In, Out int
	W       *mat.Dense // Out x In
	B       []float64
}

// NewLinear initialises weights and bias uniformly in +-1/sqrt(in).
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	bound := 1 / math.Sqrt(float64(in))
	w := make([]float64, out*in)
	for i := range w {
		w[i] = uniform(rng, bound)
	}
	b := make([]float64, out)
	for i := range b {
		b[i] = uniform(rng, bound)
	}
	return &Linear{In: in, Out: out, W: mat.NewDense(out, in, w), B: b}
}

// Forward maps an n x In matrix to a new n x Out matrix.
func (l *Linear) Forward(x mat.Matrix) *mat.Dense {
	r, _ := x.Dims()
	y := mat.NewDense(r, l.Out, nil)
	y.Mul(x, l.W.T())
	for i := 0; i < r; i++ {
		row := y.RawRowView(i)
		for j := range row {
			row[j] += l.B[j]
		}
	}
	return y
}

func uniform(rng *rand.Rand, bound float64) float64 {
	return (rng.Float64()*2 - 1) * bound
}
