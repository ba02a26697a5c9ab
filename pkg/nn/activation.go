package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GELU applies the exact (erf) Gaussian error linear unit in place.
func GELU(x *mat.Dense) *mat.Dense {
	x.Apply(func(_, _ int, v float64) float64 {
		return 0.5 * v * (1 + math.Erf(v/math.Sqrt2))
	}, x)
	return x
}

// Softmax returns a new probability vector computed from logits.
func Softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}
	lse := floats.LogSumExp(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - lse)
	}
	return out
}

// SoftmaxRows applies Softmax to every row of x in place.
func SoftmaxRows(x *mat.Dense) *mat.Dense {
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		copy(row, Softmax(row))
	}
	return x
}

// MeanRows averages the rows of x into one vector.
func MeanRows(x mat.Matrix) []float64 {
	r, c := x.Dims()
	out := make([]float64, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j] += x.At(i, j)
		}
	}
	floats.Scale(1/float64(r), out)
	return out
}

// Rows copies x into a nested slice.
func Rows(x mat.Matrix) [][]float64 {
	r, c := x.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, x)
	}
	return out
}
