package heads

import (
	"math/rand"

	"AstraMind/internal/domain/models"
	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

// DefaultHorizons are the forecast steps of each scenario.
var DefaultHorizons = []int{1, 3, 5}

// DefaultActions is the number of discrete actions K.
const DefaultActions = 3

// ACSDecoder produces per-action, per-horizon scenarios from the fused state.
// Each action is one-hot encoded and concatenated to the state before a
// Linear(H+K, H) + GELU + Linear(H, horizons*3) network.
type ACSDecoder struct {
	hidden   int
	actions  int
	horizons []int
	l1, l2   *nn.Linear
}

func NewACSDecoder(hidden int, horizons []int, actions int, rng *rand.Rand) (*ACSDecoder, error) {
	if actions <= 0 {
		return nil, tensor.Configf("acs", "actions must be > 0, got %d", actions)
	}
	if len(horizons) == 0 {
		return nil, tensor.Configf("acs", "at least one horizon required")
	}
	hs := append([]int(nil), horizons...)
	return &ACSDecoder{
		hidden:   hidden,
		actions:  actions,
		horizons: hs,
		l1:       nn.NewLinear(hidden+actions, hidden, rng),
		l2:       nn.NewLinear(hidden, len(hs)*3, rng),
	}, nil
}

// Actions returns K.
func (d *ACSDecoder) Actions() int { return d.actions }

// Horizons returns a copy of the horizon set.
func (d *ACSDecoder) Horizons() []int { return append([]int(nil), d.horizons...) }

// Decode returns scenarios for every action and every row of z (B x H).
func (d *ACSDecoder) Decode(z *mat.Dense) (models.ACS, error) {
	b, h := z.Dims()
	if h != d.hidden {
		return nil, tensor.Shapef("acs", "state dim %d, want %d", h, d.hidden)
	}
	out := make(models.ACS, d.actions)
	for k := 0; k < d.actions; k++ {
		in := mat.NewDense(b, d.hidden+d.actions, nil)
		for i := 0; i < b; i++ {
			row := in.RawRowView(i)
			copy(row, z.RawRowView(i))
			row[d.hidden+k] = 1
		}
		y := d.l2.Forward(nn.GELU(d.l1.Forward(in)))
		out[k] = make([][]models.Scenario, b)
		for i := 0; i < b; i++ {
			out[k][i] = d.reshape(y.RawRowView(i))
		}
	}
	return out, nil
}

// DecodeAction returns the scenarios of a single action for one state vector.
func (d *ACSDecoder) DecodeAction(z []float64, k int) ([]models.Scenario, error) {
	if k < 0 || k >= d.actions {
		return nil, tensor.Configf("acs", "action %d out of range [0,%d)", k, d.actions)
	}
	if len(z) != d.hidden {
		return nil, tensor.Shapef("acs", "state dim %d, want %d", len(z), d.hidden)
	}
	in := make([]float64, d.hidden+d.actions)
	copy(in, z)
	in[d.hidden+k] = 1
	y := d.l2.Forward(nn.GELU(d.l1.Forward(mat.NewDense(1, len(in), in))))
	return d.reshape(y.RawRowView(0)), nil
}

func (d *ACSDecoder) reshape(row []float64) []models.Scenario {
	sc := make([]models.Scenario, len(d.horizons))
	for h := range sc {
		sc[h] = models.Scenario{
			ExpectedMove: row[3*h],
			Dispersion:   row[3*h+1],
			Utility:      row[3*h+2],
		}
	}
	return sc
}
