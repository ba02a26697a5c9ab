package core

import (
	"fmt"
	"math/rand"

	"AstraMind/internal/domain/models"
	"AstraMind/internal/services/encoder"
	"AstraMind/internal/services/fusion"
	"AstraMind/internal/services/heads"
	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/mat"
)

const (
	BehaviorClasses = 5
	ActionClasses   = 3
)

// Config describes the full model.
type Config struct {
	Encoder  encoder.Config
	Horizons []int
	Actions  int
	Seed     int64
}

// DefaultConfig returns input 20, hidden 96, 2 layers, 4 heads, dropout 0.2,
// horizons (1,3,5) and 3 actions.
func DefaultConfig() Config {
	return Config{
		Encoder:  encoder.DefaultConfig(),
		Horizons: append([]int(nil), heads.DefaultHorizons...),
		Actions:  heads.DefaultActions,
		Seed:     42,
	}
}

// Model is the multi-timescale predictor. It is immutable after New and safe
// for concurrent Forward calls as long as each call has its own Mode.
type Model struct {
	cfg      Config
	bank     *encoder.Bank
	mixer    *fusion.Mixer
	behavior *heads.Classifier
	action   *heads.Classifier
	acs      *heads.ACSDecoder
}

// New builds the model with weights drawn from cfg.Seed.
func New(cfg Config) (*Model, error) {
	if err := cfg.Encoder.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	bank, err := encoder.NewBank(cfg.Encoder, rng)
	if err != nil {
		return nil, err
	}
	h := cfg.Encoder.Hidden
	mixer, err := fusion.NewMixer(h, cfg.Encoder.Heads, cfg.Encoder.Dropout, rng)
	if err != nil {
		return nil, fmt.Errorf("mixer: %w", err)
	}
	m := &Model{
		cfg:      cfg,
		bank:     bank,
		mixer:    mixer,
		behavior: heads.NewClassifier("behavior", h, BehaviorClasses, cfg.Encoder.Dropout, rng),
		action:   heads.NewClassifier("action", h, ActionClasses, cfg.Encoder.Dropout, rng),
	}
	m.acs, err = heads.NewACSDecoder(h, cfg.Horizons, cfg.Actions, rng)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Config returns the construction config.
func (m *Model) Config() Config { return m.cfg }

// Actions returns K of the ACS decoder.
func (m *Model) Actions() int { return m.acs.Actions() }

// Horizons returns the ACS horizon set.
func (m *Model) Horizons() []int { return m.acs.Horizons() }

// Decoder exposes the ACS decoder for single-action decoding.
func (m *Model) Decoder() *heads.ACSDecoder { return m.acs }

// Forward runs encode, fuse and all heads. Windows may differ in T but must
// share B and F. Every stochastic layer, encoders included, follows mode.
func (m *Model) Forward(short, mid, long *tensor.Tensor3, mode nn.Mode) (models.Inference, error) {
	if !mode.Valid() {
		return models.Inference{}, tensor.Configf("forward", "stochastic mode requires a random source")
	}
	windows := [3]*tensor.Tensor3{short, mid, long}
	for i, w := range windows {
		if err := w.Validate("forward "+encoder.Scales[i].String(), m.cfg.Encoder.InputSize); err != nil {
			return models.Inference{}, err
		}
		if w.B != short.B {
			return models.Inference{}, tensor.Shapef("forward", "%s batch %d, want %d", encoder.Scales[i], w.B, short.B)
		}
	}

	var latents [3]*mat.Dense
	for i, s := range encoder.Scales {
		z, err := m.bank.EncodeBatch(s, windows[i], mode)
		if err != nil {
			return models.Inference{}, err
		}
		latents[i] = z
	}
	z, err := m.mixer.FuseBatch(latents[0], latents[1], latents[2], mode)
	if err != nil {
		return models.Inference{}, err
	}

	pb, err := m.behavior.Probs(z, mode)
	if err != nil {
		return models.Inference{}, err
	}
	pa, err := m.action.Probs(z, mode)
	if err != nil {
		return models.Inference{}, err
	}
	acs, err := m.acs.Decode(z)
	if err != nil {
		return models.Inference{}, err
	}
	return models.Inference{
		BehaviorProbs: nn.Rows(pb),
		ActionProbs:   nn.Rows(pa),
		ACS:           acs,
		Latent:        nn.Rows(z),
	}, nil
}
