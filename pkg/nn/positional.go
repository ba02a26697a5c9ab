package nn

import (
	"math"

	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

// DefaultMaxLen bounds the number of time steps a positional table covers.
const DefaultMaxLen = 512

// PositionalEncoding adds a fixed sinusoidal table to the input rows.
type PositionalEncoding struct {
	pe *mat.Dense
}

func NewPositionalEncoding(dim, maxLen int) *PositionalEncoding {
	pe := mat.NewDense(maxLen, dim, nil)
	for pos := 0; pos < maxLen; pos++ {
		for i := 0; i < dim; i += 2 {
			div := math.Exp(float64(i) * (-math.Log(10000.0) / float64(dim)))
			pe.Set(pos, i, math.Sin(float64(pos)*div))
			if i+1 < dim {
				pe.Set(pos, i+1, math.Cos(float64(pos)*div))
			}
		}
	}
	return &PositionalEncoding{pe: pe}
}

// MaxLen returns the longest sequence the table supports.
func (p *PositionalEncoding) MaxLen() int {
	r, _ := p.pe.Dims()
	return r
}

// Forward returns x plus the first T rows of the table.
func (p *PositionalEncoding) Forward(x mat.Matrix) (*mat.Dense, error) {
	t, c := x.Dims()
	maxLen, dim := p.pe.Dims()
	if t > maxLen {
		return nil, tensor.Shapef("positional", "sequence length %d exceeds %d", t, maxLen)
	}
	if c != dim {
		return nil, tensor.Shapef("positional", "width %d, want %d", c, dim)
	}
	out := mat.NewDense(t, c, nil)
	out.Add(x, p.pe.Slice(0, t, 0, c))
	return out, nil
}
