package encoder

import (
	"fmt"
	"math/rand"

	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

// Scale identifies a timescale branch.
type Scale int

const (
	Short Scale = iota
	Mid
	Long
)

// Scales lists the branches in fusion order.
var Scales = [3]Scale{Short, Mid, Long}

func (s Scale) String() string {
	switch s {
	case Short:
		return "short"
	case Mid:
		return "mid"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("scale(%d)", int(s))
	}
}

// Bank holds one independently parameterised branch per timescale.
type Bank struct {
	cfg      Config
	branches [3]*Branch
}

// NewBank builds the short, mid and long branches in that order from rng.
func NewBank(cfg Config, rng *rand.Rand) (*Bank, error) {
	b := &Bank{cfg: cfg}
	for _, s := range Scales {
		br, err := NewBranch(cfg, rng)
		if err != nil {
			return nil, fmt.Errorf("%s branch: %w", s, err)
		}
		b.branches[s] = br
	}
	return b, nil
}

// Branch returns the encoder for s.
func (b *Bank) Branch(s Scale) *Branch { return b.branches[s] }

// EncodeBatch encodes every window of x with the branch for s into a B x H matrix.
func (b *Bank) EncodeBatch(s Scale, x *tensor.Tensor3, m nn.Mode) (*mat.Dense, error) {
	if err := x.Validate("encode "+s.String(), b.cfg.InputSize); err != nil {
		return nil, err
	}
	out := mat.NewDense(x.B, b.cfg.Hidden, nil)
	br := b.branches[s]
	for i := 0; i < x.B; i++ {
		z, err := br.Encode(x.Sample(i), m)
		if err != nil {
			return nil, fmt.Errorf("%s window %d: %w", s, i, err)
		}
		out.SetRow(i, z)
	}
	return out, nil
}
