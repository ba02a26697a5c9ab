package encoder

import (
	"math/rand"

	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

// Config describes one timescale branch.
type Config struct {
	InputSize int
	Hidden    int
	NumLayers int
	Heads     int
	Dropout   float64
	MaxLen    int
}

// DefaultConfig returns the reference branch shape.
func DefaultConfig() Config {
	return Config{
		InputSize: 20,
		Hidden:    96,
		NumLayers: 2,
		Heads:     4,
		Dropout:   0.2,
		MaxLen:    nn.DefaultMaxLen,
	}
}

// Validate checks the branch dimensions.
func (c Config) Validate() error {
	switch {
	case c.InputSize <= 0:
		return tensor.Configf("encoder", "input_size must be > 0, got %d", c.InputSize)
	case c.Hidden < 2:
		return tensor.Configf("encoder", "hidden must be >= 2, got %d", c.Hidden)
	case c.NumLayers <= 0:
		return tensor.Configf("encoder", "num_layers must be > 0, got %d", c.NumLayers)
	case c.Heads <= 0 || c.Hidden%c.Heads != 0:
		return tensor.Configf("encoder", "hidden %d not divisible by %d heads", c.Hidden, c.Heads)
	case c.Dropout < 0 || c.Dropout >= 1:
		return tensor.Configf("encoder", "dropout must be in [0,1), got %v", c.Dropout)
	case c.MaxLen <= 0:
		return tensor.Configf("encoder", "max_len must be > 0, got %d", c.MaxLen)
	}
	return nil
}

// Branch maps a T x F window to an H-dimensional latent:
// projection, positional encoding, LSTM, transformer encoder, mean pool.
type Branch struct {
	cfg  Config
	proj *nn.Linear
	norm *nn.LayerNorm
	drop nn.Dropout
	pos  *nn.PositionalEncoding
	lstm *nn.LSTM
	enc  *nn.EncoderLayer
}

// NewBranch draws the branch weights from rng.
func NewBranch(cfg Config, rng *rand.Rand) (*Branch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	enc, err := nn.NewEncoderLayer(cfg.Hidden, cfg.Heads, cfg.Dropout, rng)
	if err != nil {
		return nil, err
	}
	return &Branch{
		cfg:  cfg,
		proj: nn.NewLinear(cfg.InputSize, cfg.Hidden, rng),
		norm: nn.NewLayerNorm(cfg.Hidden),
		drop: nn.Dropout{P: cfg.Dropout},
		pos:  nn.NewPositionalEncoding(cfg.Hidden, cfg.MaxLen),
		lstm: nn.NewLSTM(cfg.Hidden, cfg.Hidden, cfg.NumLayers, cfg.Dropout, rng),
		enc:  enc,
	}, nil
}

// Encode returns the latent for one window. The window is not modified.
func (b *Branch) Encode(window mat.Matrix, m nn.Mode) ([]float64, error) {
	t, f := window.Dims()
	if t == 0 {
		return nil, tensor.Shapef("encode", "window has no time steps")
	}
	if f != b.cfg.InputSize {
		return nil, tensor.Shapef("encode", "feature dim %d, want %d", f, b.cfg.InputSize)
	}
	h := b.proj.Forward(window)
	h = b.drop.Forward(nn.GELU(b.norm.Forward(h)), m)
	h, err := b.pos.Forward(h)
	if err != nil {
		return nil, err
	}
	h = b.lstm.Forward(h, m)
	h = b.enc.Forward(h, m)
	return nn.MeanRows(h), nil
}
