package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const layerNormEps = 1e-5

// LayerNorm normalises each row to zero mean and unit (biased) variance.
type LayerNorm struct {
	Gamma []float64
	Beta  []float64
}

func NewLayerNorm(dim int) *LayerNorm {
	g := make([]float64, dim)
	for i := range g {
		g[i] = 1
	}
	return &LayerNorm{Gamma: g, Beta: make([]float64, dim)}
}

// Forward returns a normalised copy of x.
func (n *LayerNorm) Forward(x mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(x)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		row := out.RawRowView(i)
		normalizeRow(row, n.Gamma, n.Beta)
	}
	return out
}

func normalizeRow(row, gamma, beta []float64) {
	var mean float64
	for _, v := range row {
		mean += v
	}
	mean /= float64(len(row))
	var variance float64
	for _, v := range row {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(row))
	inv := 1 / math.Sqrt(variance+layerNormEps)
	for j, v := range row {
		row[j] = (v-mean)*inv*gamma[j] + beta[j]
	}
}
