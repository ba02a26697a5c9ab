package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type lstmLayer struct {
	in  *Linear    // 4H x In, input-to-hidden with bias
	hh  *mat.Dense // 4H x H
	bhh []float64
}

// LSTM is a stacked unidirectional LSTM with gate order (i, f, g, o).
type LSTM struct {
	Hidden  int
	layers  []lstmLayer
	dropout Dropout
}

// NewLSTM builds numLayers stacked cells. Dropout applies between layers only.
func NewLSTM(in, hidden, numLayers int, dropout float64, rng *rand.Rand) *LSTM {
	l := &LSTM{Hidden: hidden}
	if numLayers > 1 {
		l.dropout = Dropout{P: dropout}
	}
	bound := 1 / math.Sqrt(float64(hidden))
	for k := 0; k < numLayers; k++ {
		width := hidden
		if k == 0 {
			width = in
		}
		ih := &Linear{In: width, Out: 4 * hidden, W: mat.NewDense(4*hidden, width, fill(4*hidden*width, bound, rng)), B: fill(4*hidden, bound, rng)}
		l.layers = append(l.layers, lstmLayer{
			in:  ih,
			hh:  mat.NewDense(4*hidden, hidden, fill(4*hidden*hidden, bound, rng)),
			bhh: fill(4*hidden, bound, rng),
		})
	}
	return l
}

// Forward runs the sequence through every layer and returns the T x H
// hidden states of the last layer. Initial states are zero.
func (l *LSTM) Forward(x mat.Matrix, m Mode) *mat.Dense {
	var out *mat.Dense
	cur := x
	for k, layer := range l.layers {
		out = layer.run(cur, l.Hidden)
		if k < len(l.layers)-1 {
			out = l.dropout.Forward(out, m)
		}
		cur = out
	}
	return out
}

func (c lstmLayer) run(x mat.Matrix, hidden int) *mat.Dense {
	t, _ := x.Dims()
	xg := c.in.Forward(x) // T x 4H
	out := mat.NewDense(t, hidden, nil)
	h := make([]float64, hidden)
	cell := make([]float64, hidden)
	gates := make([]float64, 4*hidden)
	for step := 0; step < t; step++ {
		copy(gates, xg.RawRowView(step))
		for j := range gates {
			gates[j] += floats.Dot(c.hh.RawRowView(j), h) + c.bhh[j]
		}
		for j := 0; j < hidden; j++ {
			ig := sigmoid(gates[j])
			fg := sigmoid(gates[hidden+j])
			gg := math.Tanh(gates[2*hidden+j])
			og := sigmoid(gates[3*hidden+j])
			cell[j] = fg*cell[j] + ig*gg
			h[j] = og * math.Tanh(cell[j])
		}
		out.SetRow(step, h)
	}
	return out
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

func fill(n int, bound float64, rng *rand.Rand) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = uniform(rng, bound)
	}
	return out
}
