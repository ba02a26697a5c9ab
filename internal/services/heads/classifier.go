package heads

import (
	"math"
	"math/rand"

	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

// Classifier is Linear(H, H/2) + GELU + Dropout + Linear(H/2, classes) + softmax.
type Classifier struct {
	name    string
	classes int
	l1, l2  *nn.Linear
	drop    nn.Dropout
}

func NewClassifier(name string, hidden, classes int, dropout float64, rng *rand.Rand) *Classifier {
	mid := hidden / 2
	return &Classifier{
		name:    name,
		classes: classes,
		l1:      nn.NewLinear(hidden, mid, rng),
		l2:      nn.NewLinear(mid, classes, rng),
		drop:    nn.Dropout{P: dropout},
	}
}

// Classes returns the number of output classes.
func (c *Classifier) Classes() int { return c.classes }

// Probs maps a B x H matrix to a B x classes matrix of probabilities.
func (c *Classifier) Probs(z mat.Matrix, m nn.Mode) (*mat.Dense, error) {
	h := c.drop.Forward(nn.GELU(c.l1.Forward(z)), m)
	p := nn.SoftmaxRows(c.l2.Forward(h))
	r, _ := p.Dims()
	for i := 0; i < r; i++ {
		if err := CheckSimplex(c.name, p.RawRowView(i)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// CheckSimplex reports NumericDegeneracy for non-finite or negative entries.
func CheckSimplex(op string, p []float64) error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return tensor.Numericf(op, "probability %d is not finite", i)
		}
		if v < 0 {
			return tensor.Numericf(op, "probability %d is negative: %v", i, v)
		}
	}
	return nil
}
