package core

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"AstraMind/internal/services/encoder"
	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/floats"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Encoder = encoder.Config{InputSize: 4, Hidden: 8, NumLayers: 2, Heads: 2, Dropout: 0.2, MaxLen: 64}
	cfg.Seed = 7
	return cfg
}

func randomWindow(rng *rand.Rand, b, t, f int) *tensor.Tensor3 {
	x := tensor.New3(b, t, f)
	for i := range x.Data {
		x.Data[i] = rng.NormFloat64()
	}
	return x
}

func newSmallModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(smallConfig())
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func assertSimplexRows(t *testing.T, name string, rows [][]float64, b, k int) {
	t.Helper()
	if len(rows) != b {
		t.Fatalf("%s: %d rows, want %d", name, len(rows), b)
	}
	for i, p := range rows {
		if len(p) != k {
			t.Fatalf("%s row %d: %d classes, want %d", name, i, len(p), k)
		}
		for _, v := range p {
			if v < 0 {
				t.Fatalf("%s row %d has negative entry %v", name, i, v)
			}
		}
		if math.Abs(floats.Sum(p)-1) > 1e-9 {
			t.Fatalf("%s row %d sums to %v", name, i, floats.Sum(p))
		}
	}
}

func TestForwardShapesWithDifferentLengths(t *testing.T) {
	m := newSmallModel(t)
	rng := rand.New(rand.NewSource(1))
	out, err := m.Forward(randomWindow(rng, 2, 16, 4), randomWindow(rng, 2, 32, 4), randomWindow(rng, 2, 8, 4), nn.Deterministic())
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	assertSimplexRows(t, "behavior", out.BehaviorProbs, 2, BehaviorClasses)
	assertSimplexRows(t, "action", out.ActionProbs, 2, ActionClasses)
	if out.ACS.Actions() != 3 || out.ACS.Batch() != 2 || out.ACS.Horizons() != 3 {
		t.Fatalf("acs dims = %d/%d/%d", out.ACS.Actions(), out.ACS.Batch(), out.ACS.Horizons())
	}
	if len(out.Latent) != 2 || len(out.Latent[0]) != 8 {
		t.Fatalf("latent dims = %dx%d", len(out.Latent), len(out.Latent[0]))
	}
}

func TestForwardDeterministicIsReproducible(t *testing.T) {
	m := newSmallModel(t)
	rng := rand.New(rand.NewSource(2))
	s, md, l := randomWindow(rng, 3, 10, 4), randomWindow(rng, 3, 10, 4), randomWindow(rng, 3, 10, 4)
	a, err := m.Forward(s, md, l, nn.Deterministic())
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	b, err := m.Forward(s, md, l, nn.Deterministic())
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("deterministic forward differs between calls")
	}
	other, err := New(smallConfig())
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	c, err := other.Forward(s, md, l, nn.Deterministic())
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if !reflect.DeepEqual(a, c) {
		t.Fatalf("same seed should yield identical weights and outputs")
	}
}

func TestForwardStochasticVaries(t *testing.T) {
	m := newSmallModel(t)
	rng := rand.New(rand.NewSource(3))
	s, md, l := randomWindow(rng, 1, 12, 4), randomWindow(rng, 1, 12, 4), randomWindow(rng, 1, 12, 4)
	a, err := m.Forward(s, md, l, nn.Stochastic(1))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	b, err := m.Forward(s, md, l, nn.Stochastic(2))
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if reflect.DeepEqual(a.Latent, b.Latent) {
		t.Fatalf("stochastic latents should differ across seeds")
	}
	assertSimplexRows(t, "behavior", a.BehaviorProbs, 1, BehaviorClasses)
}

func TestACSRoundTripIsBitReproducible(t *testing.T) {
	m := newSmallModel(t)
	rng := rand.New(rand.NewSource(4))
	out, err := m.Forward(randomWindow(rng, 2, 6, 4), randomWindow(rng, 2, 6, 4), randomWindow(rng, 2, 6, 4), nn.Deterministic())
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	for k := 0; k < m.Actions(); k++ {
		for b, z := range out.Latent {
			first, err := m.Decoder().DecodeAction(z, k)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			second, err := m.Decoder().DecodeAction(z, k)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Fatalf("action %d batch %d not bit-reproducible", k, b)
			}
			for h, sc := range first {
				got := out.ACS[k][b][h]
				if math.Abs(got.Utility-sc.Utility) > 1e-12 || math.Abs(got.ExpectedMove-sc.ExpectedMove) > 1e-12 {
					t.Fatalf("batched and single decode disagree at k=%d b=%d h=%d", k, b, h)
				}
			}
		}
	}
	if _, err := m.Decoder().DecodeAction(out.Latent[0], 3); !errors.Is(err, tensor.ErrConfig) {
		t.Fatalf("expected config error for out-of-range action, got %v", err)
	}
}

func TestForwardShapeErrors(t *testing.T) {
	m := newSmallModel(t)
	rng := rand.New(rand.NewSource(5))
	ok := randomWindow(rng, 2, 6, 4)
	cases := map[string][3]*tensor.Tensor3{
		"wrong features": {randomWindow(rng, 2, 6, 5), ok, ok},
		"batch mismatch": {ok, randomWindow(rng, 3, 6, 4), ok},
		"too long":       {ok, ok, randomWindow(rng, 2, 65, 4)},
		"nil window":     {ok, nil, ok},
		"zero steps":     {ok, ok, {B: 2, T: 0, F: 4}},
	}
	for name, w := range cases {
		if _, err := m.Forward(w[0], w[1], w[2], nn.Deterministic()); !errors.Is(err, tensor.ErrShape) {
			t.Fatalf("%s: expected shape error, got %v", name, err)
		}
	}
}

func TestForwardRejectsStochasticWithoutSource(t *testing.T) {
	m := newSmallModel(t)
	rng := rand.New(rand.NewSource(6))
	w := randomWindow(rng, 1, 4, 4)
	if _, err := m.Forward(w, w, w, nn.Mode{Stochastic: true}); !errors.Is(err, tensor.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Encoder.Heads = 3
	if _, err := New(cfg); !errors.Is(err, tensor.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	cfg = smallConfig()
	cfg.Actions = 0
	if _, err := New(cfg); !errors.Is(err, tensor.ErrConfig) {
		t.Fatalf("expected config error for zero actions, got %v", err)
	}
}
