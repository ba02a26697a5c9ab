package fusion

import (
	"math/rand"

	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

// Mixer fuses the three scale latents with one self-attention layer over the
// tokens (short, mid, long) followed by a mean over the mixed tokens.
// Tokens carry no positional signal, so the fused state does not depend on
// their order.
type Mixer struct {
	dim   int
	layer *nn.EncoderLayer
}

func NewMixer(dim, heads int, dropout float64, rng *rand.Rand) (*Mixer, error) {
	layer, err := nn.NewEncoderLayer(dim, heads, dropout, rng)
	if err != nil {
		return nil, err
	}
	return &Mixer{dim: dim, layer: layer}, nil
}

// Fuse returns the fused H-dimensional representation.
func (m *Mixer) Fuse(short, mid, long []float64, mode nn.Mode) ([]float64, error) {
	tokens := mat.NewDense(3, m.dim, nil)
	for i, z := range [][]float64{short, mid, long} {
		if len(z) != m.dim {
			return nil, tensor.Shapef("fuse", "token %d has dim %d, want %d", i, len(z), m.dim)
		}
		tokens.SetRow(i, z)
	}
	return nn.MeanRows(m.layer.Forward(tokens, mode)), nil
}

// FuseBatch fuses row-aligned B x H latent matrices into a B x H matrix.
func (m *Mixer) FuseBatch(short, mid, long *mat.Dense, mode nn.Mode) (*mat.Dense, error) {
	b, _ := short.Dims()
	if rm, _ := mid.Dims(); rm != b {
		return nil, tensor.Shapef("fuse", "mid batch %d, want %d", rm, b)
	}
	if rl, _ := long.Dims(); rl != b {
		return nil, tensor.Shapef("fuse", "long batch %d, want %d", rl, b)
	}
	out := mat.NewDense(b, m.dim, nil)
	for i := 0; i < b; i++ {
		z, err := m.Fuse(short.RawRowView(i), mid.RawRowView(i), long.RawRowView(i), mode)
		if err != nil {
			return nil, err
		}
		out.SetRow(i, z)
	}
	return out, nil
}
