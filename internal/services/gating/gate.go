package gating

import (
	"math"
	"sort"

	"AstraMind/internal/domain/models"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/floats"
)

// DefaultTau applies when no regime or threshold is given.
const DefaultTau = 0.48

// Regime presets for the gating threshold.
var defaultTauByRegime = map[string]float64{
	"whale":         0.42,
	"institutional": 0.44,
	"algo":          0.50,
	"retail":        0.48,
}

// TauForRegime returns the preset for regime, or DefaultTau when unknown.
func TauForRegime(regime string) float64 {
	if tau, ok := defaultTauByRegime[regime]; ok {
		return tau
	}
	return DefaultTau
}

// Regimes returns a copy of the preset table.
func Regimes() map[string]float64 {
	out := make(map[string]float64, len(defaultTauByRegime))
	for k, v := range defaultTauByRegime {
		out[k] = v
	}
	return out
}

// RegimeNames returns the preset names in sorted order.
func RegimeNames() []string {
	names := make([]string, 0, len(defaultTauByRegime))
	for k := range defaultTauByRegime {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Gate converts ACS utilities and an entropy scalar into an advisory decision.
// It is stateless; Actions and Horizons must match the decoder that produced
// the scenarios.
type Gate struct {
	Actions  int
	Horizons int
}

func New(actions, horizons int) (*Gate, error) {
	if actions <= 0 || horizons <= 0 {
		return nil, tensor.Configf("gate", "actions and horizons must be > 0, got %d/%d", actions, horizons)
	}
	return &Gate{Actions: actions, Horizons: horizons}, nil
}

// Select scores each action as mean utility over horizons times (1 - entropy),
// picks the first maximum and sets act when that maximum is >= tau.
func (g *Gate) Select(acs models.ACS, entropy, tau float64) (models.GateDecision, error) {
	if err := g.check(acs); err != nil {
		return models.GateDecision{}, err
	}
	if math.IsNaN(entropy) || math.IsInf(entropy, 0) || entropy < 0 {
		return models.GateDecision{}, tensor.Numericf("gate", "entropy must be finite and >= 0, got %v", entropy)
	}
	if math.IsNaN(tau) {
		return models.GateDecision{}, tensor.Configf("gate", "tau is NaN")
	}

	batch := acs.Batch()
	out := models.GateDecision{
		Best:   make([]int, batch),
		Scores: make([][]float64, batch),
		Act:    make([]bool, batch),
		Tau:    tau,
	}
	for b := 0; b < batch; b++ {
		scores := make([]float64, g.Actions)
		for k := 0; k < g.Actions; k++ {
			var u float64
			for _, sc := range acs[k][b] {
				if math.IsNaN(sc.Utility) || math.IsInf(sc.Utility, 0) {
					return models.GateDecision{}, tensor.Numericf("gate", "utility of action %d batch %d is not finite", k, b)
				}
				u += sc.Utility
			}
			scores[k] = u / float64(g.Horizons) * (1 - entropy)
		}
		best := floats.MaxIdx(scores)
		out.Best[b] = best
		out.Scores[b] = scores
		out.Act[b] = scores[best] >= tau
	}
	return out, nil
}

func (g *Gate) check(acs models.ACS) error {
	if len(acs) != g.Actions {
		return tensor.Configf("gate", "acs has %d actions, gate expects %d", len(acs), g.Actions)
	}
	batch := acs.Batch()
	if batch == 0 {
		return tensor.Shapef("gate", "empty batch")
	}
	for k, per := range acs {
		if len(per) != batch {
			return tensor.Shapef("gate", "action %d has batch %d, want %d", k, len(per), batch)
		}
		for b, hs := range per {
			if len(hs) != g.Horizons {
				return tensor.Configf("gate", "action %d batch %d has %d horizons, gate expects %d", k, b, len(hs), g.Horizons)
			}
		}
	}
	return nil
}
