package nn

import (
	"math"
	"math/rand"

	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

// MultiHeadAttention is scaled dot-product self-attention split across heads.
type MultiHeadAttention struct {
	Dim, Heads  int
	q, k, v, o  *Linear
	attnDropout Dropout
}

func NewMultiHeadAttention(dim, heads int, dropout float64, rng *rand.Rand) (*MultiHeadAttention, error) {
	if heads <= 0 || dim%heads != 0 {
		return nil, tensor.Configf("attention", "dim %d not divisible by %d heads", dim, heads)
	}
	return &MultiHeadAttention{
		Dim:         dim,
		Heads:       heads,
		q:           NewLinear(dim, dim, rng),
		k:           NewLinear(dim, dim, rng),
		v:           NewLinear(dim, dim, rng),
		o:           NewLinear(dim, dim, rng),
		attnDropout: Dropout{P: dropout},
	}, nil
}

// Forward attends every row of x to every other row.
func (a *MultiHeadAttention) Forward(x mat.Matrix, m Mode) *mat.Dense {
	n, _ := x.Dims()
	q, k, v := a.q.Forward(x), a.k.Forward(x), a.v.Forward(x)
	dh := a.Dim / a.Heads
	scale := 1 / math.Sqrt(float64(dh))
	concat := mat.NewDense(n, a.Dim, nil)
	scores := mat.NewDense(n, n, nil)
	for h := 0; h < a.Heads; h++ {
		lo, hi := h*dh, (h+1)*dh
		qh := q.Slice(0, n, lo, hi)
		kh := k.Slice(0, n, lo, hi)
		vh := v.Slice(0, n, lo, hi)
		scores.Mul(qh, kh.T())
		scores.Scale(scale, scores)
		SoftmaxRows(scores)
		a.attnDropout.Forward(scores, m)
		head := concat.Slice(0, n, lo, hi).(*mat.Dense)
		head.Mul(scores, vh)
	}
	return a.o.Forward(concat)
}

// EncoderLayer is a post-norm transformer encoder block with a GELU
// feed-forward of width 2*dim.
type EncoderLayer struct {
	attn         *MultiHeadAttention
	ff1, ff2     *Linear
	norm1, norm2 *LayerNorm
	drop         Dropout
}

func NewEncoderLayer(dim, heads int, dropout float64, rng *rand.Rand) (*EncoderLayer, error) {
	attn, err := NewMultiHeadAttention(dim, heads, dropout, rng)
	if err != nil {
		return nil, err
	}
	return &EncoderLayer{
		attn:  attn,
		ff1:   NewLinear(dim, 2*dim, rng),
		ff2:   NewLinear(2*dim, dim, rng),
		norm1: NewLayerNorm(dim),
		norm2: NewLayerNorm(dim),
		drop:  Dropout{P: dropout},
	}, nil
}

// Forward returns a new matrix of the same shape as x.
func (e *EncoderLayer) Forward(x mat.Matrix, m Mode) *mat.Dense {
	r, c := x.Dims()
	sa := e.drop.Forward(e.attn.Forward(x, m), m)
	h := mat.NewDense(r, c, nil)
	h.Add(x, sa)
	h = e.norm1.Forward(h)

	ff := e.drop.Forward(GELU(e.ff1.Forward(h)), m)
	ff = e.drop.Forward(e.ff2.Forward(ff), m)
	out := mat.NewDense(r, c, nil)
	out.Add(h, ff)
	return e.norm2.Forward(out)
}
