package usecase

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
	"AstraMind/internal/services/core"
	"AstraMind/internal/services/encoder"
	"AstraMind/internal/services/features"
	"AstraMind/internal/services/gating"
	"AstraMind/internal/services/losses"
	"AstraMind/internal/services/sentinel"
	"AstraMind/internal/services/uncertainty"
	"AstraMind/pkg/tensor"
)

func randomBatch(rng *rand.Rand, b, t, f int) [][][]float64 {
	out := make([][][]float64, b)
	for i := range out {
		out[i] = make([][]float64, t)
		for j := range out[i] {
			row := make([]float64, f)
			for k := range row {
				row[k] = rng.NormFloat64()
			}
			out[i][j] = row
		}
	}
	return out
}

func newEngine(t *testing.T, mc core.Config, d Deps, cfg EngineConfig) *DecisionEngine {
	t.Helper()
	model, err := core.New(mc)
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	gate, err := gating.New(mc.Actions, len(mc.Horizons))
	if err != nil {
		t.Fatalf("new gate: %v", err)
	}
	d.Model = model
	d.Estimator = uncertainty.New(model, uncertainty.Config{Passes: cfg.Passes, Parallelism: 4, Seed: cfg.Seed})
	d.Gate = gate
	return NewDecisionEngine(d, cfg)
}

func TestDecideEndToEnd(t *testing.T) {
	cfg := EngineConfig{Passes: 6, Seed: 3, Physics: losses.DefaultPhysicsConfig()}
	e := newEngine(t, core.DefaultConfig(), Deps{}, cfg)

	rng := rand.New(rand.NewSource(11))
	ws := models.WindowSet{
		Short: randomBatch(rng, 4, 64, 20),
		Mid:   randomBatch(rng, 4, 64, 20),
		Long:  randomBatch(rng, 4, 64, 20),
	}
	got, err := e.Decide(context.Background(), ws, 6, 0, "retail", nil)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if got.Gate.Tau != 0.48 || got.Regime != "retail" {
		t.Fatalf("tau=%v regime=%q", got.Gate.Tau, got.Regime)
	}
	if len(got.Gate.Best) != 4 || len(got.Gate.Scores) != 4 || len(got.Gate.Act) != 4 {
		t.Fatalf("gate shapes: %d/%d/%d", len(got.Gate.Best), len(got.Gate.Scores), len(got.Gate.Act))
	}
	for b, best := range got.Gate.Best {
		if best < 0 || best >= 3 || len(got.Gate.Scores[b]) != 3 {
			t.Fatalf("batch %d: best=%d scores=%v", b, best, got.Gate.Scores[b])
		}
		if got.Gate.Act[b] != (got.Gate.Scores[b][best] >= 0.48) {
			t.Fatalf("batch %d: act disagrees with tau", b)
		}
	}
	if got.Uncertainty.Passes != 6 {
		t.Fatalf("passes = %d", got.Uncertainty.Passes)
	}
	hmax := (math.Log(core.BehaviorClasses) + math.Log(core.ActionClasses)) / 2
	if got.Uncertainty.Entropy < 0 || got.Uncertainty.Entropy > hmax+1e-9 {
		t.Fatalf("entropy %v outside [0, %v]", got.Uncertainty.Entropy, hmax)
	}
	if got.PhysicsLoss < 0 {
		t.Fatalf("physics loss %v < 0", got.PhysicsLoss)
	}
	if acs := got.Inference.ACS; acs.Actions() != 3 || acs.Batch() != 4 || acs.Horizons() != 3 {
		t.Fatalf("acs shape %dx%dx%d", acs.Actions(), acs.Batch(), acs.Horizons())
	}

	again, err := e.Decide(context.Background(), ws, 6, 0, "retail", nil)
	if err != nil {
		t.Fatalf("decide again: %v", err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("decide is not deterministic for a fixed seed")
	}
}

func smallCoreConfig() core.Config {
	mc := core.DefaultConfig()
	mc.Encoder = encoder.Config{InputSize: features.Width, Hidden: 8, NumLayers: 1, Heads: 2, Dropout: 0.2, MaxLen: 64}
	mc.Seed = 5
	return mc
}

func TestResolveTauPrecedence(t *testing.T) {
	cfgTau := 0.7
	e := NewDecisionEngine(Deps{}, EngineConfig{Regime: "whale"})
	if tau, regime := e.ResolveTau("", nil); tau != 0.42 || regime != "whale" {
		t.Fatalf("config regime: got %v %q", tau, regime)
	}

	e = NewDecisionEngine(Deps{}, EngineConfig{Regime: "whale", Tau: &cfgTau})
	if tau, _ := e.ResolveTau("", nil); tau != 0.7 {
		t.Fatalf("config tau: got %v", tau)
	}
	if tau, regime := e.ResolveTau("algo", nil); tau != 0.50 || regime != "algo" {
		t.Fatalf("request regime beats config tau: got %v %q", tau, regime)
	}
	explicit := 0.1
	if tau, _ := e.ResolveTau("algo", &explicit); tau != 0.1 {
		t.Fatalf("explicit tau: got %v", tau)
	}
	if tau, _ := e.ResolveTau("unknown", nil); tau != gating.DefaultTau {
		t.Fatalf("unknown regime: got %v", tau)
	}
}

func TestDecideRejectsRaggedWindow(t *testing.T) {
	e := newEngine(t, smallCoreConfig(), Deps{}, EngineConfig{Passes: 2, Seed: 1})
	rng := rand.New(rand.NewSource(2))
	short := randomBatch(rng, 2, 8, features.Width)
	short[1] = short[1][:7]
	ws := models.WindowSet{Short: short, Mid: randomBatch(rng, 2, 8, features.Width), Long: randomBatch(rng, 2, 8, features.Width)}
	_, err := e.Decide(context.Background(), ws, 2, 1, "", nil)
	if !errors.Is(err, tensor.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}

func TestDecideWrongFeatureWidth(t *testing.T) {
	m := newCountingMetrics()
	e := newEngine(t, smallCoreConfig(), Deps{Metrics: m}, EngineConfig{Passes: 2, Seed: 1})
	rng := rand.New(rand.NewSource(2))
	ws := models.WindowSet{
		Short: randomBatch(rng, 1, 8, 5),
		Mid:   randomBatch(rng, 1, 8, 5),
		Long:  randomBatch(rng, 1, 8, 5),
	}
	_, err := e.Decide(context.Background(), ws, 2, 1, "", nil)
	if !errors.Is(err, tensor.ErrShape) {
		t.Fatalf("expected shape error for feature width 5, got %v", err)
	}
	if m.errors[string(tensor.KindShape)] != 1 {
		t.Fatalf("error not recorded: %v", m.errors)
	}
}

func TestUncertaintyUsesConfiguredPasses(t *testing.T) {
	e := newEngine(t, smallCoreConfig(), Deps{}, EngineConfig{Passes: 3, Seed: 9})
	rng := rand.New(rand.NewSource(4))
	ws := models.WindowSet{
		Short: randomBatch(rng, 2, 8, features.Width),
		Mid:   randomBatch(rng, 2, 8, features.Width),
		Long:  randomBatch(rng, 2, 8, features.Width),
	}
	u, err := e.Uncertainty(context.Background(), ws, 0, 0)
	if err != nil {
		t.Fatalf("uncertainty: %v", err)
	}
	if u.Passes != 3 {
		t.Fatalf("passes = %d, want configured 3", u.Passes)
	}
}

func TestInferStochasticDependsOnSeed(t *testing.T) {
	e := newEngine(t, smallCoreConfig(), Deps{}, EngineConfig{Passes: 2, Seed: 1})
	rng := rand.New(rand.NewSource(8))
	ws := models.WindowSet{
		Short: randomBatch(rng, 1, 8, features.Width),
		Mid:   randomBatch(rng, 1, 8, features.Width),
		Long:  randomBatch(rng, 1, 8, features.Width),
	}
	ctx := context.Background()
	a, err := e.Infer(ctx, ws, true, 21)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	b, err := e.Infer(ctx, ws, true, 21)
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed gave different outputs")
	}
	d1, _ := e.Infer(ctx, ws, false, 0)
	d2, _ := e.Infer(ctx, ws, false, 99)
	if !reflect.DeepEqual(d1, d2) {
		t.Fatalf("deterministic pass depends on seed")
	}
}

func TestDecideSymbolFansOut(t *testing.T) {
	rec := &recordingDecisions{}
	store := newMemSentinelStore()
	m := newCountingMetrics()
	reg, err := NewSentinelRegistry(sentinel.Config{WindowRef: 4, WindowCur: 2, DThresh: 0.5, HMax: 10}, store, m, nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	fs := &candleStore{}
	d := Deps{
		Features:    fs,
		Decisions:   rec,
		Publisher:   rec,
		Broadcaster: rec,
		Sentinels:   reg,
		Metrics:     m,
	}
	e := newEngine(t, smallCoreConfig(), d, EngineConfig{Passes: 3, Seed: 2, Regime: "algo", Candles: 48, Physics: losses.DefaultPhysicsConfig()})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	e.newID = func() string { return "dec-1" }

	got, err := e.DecideSymbol(context.Background(), "BTCUSDT", "", 0)
	if err != nil {
		t.Fatalf("decide symbol: %v", err)
	}
	if want := []domrepo.Timeframe{domrepo.TF1s, domrepo.TF1m, domrepo.TF5m}; !reflect.DeepEqual(fs.calls, want) {
		t.Fatalf("timeframes loaded %v, want %v", fs.calls, want)
	}
	if got.ID != "dec-1" || got.Symbol != "BTCUSDT" || !got.Timestamp.Equal(fixed) {
		t.Fatalf("identity fields: %+v", got)
	}
	if got.Regime != "algo" || got.Tau != 0.50 {
		t.Fatalf("regime %q tau %v", got.Regime, got.Tau)
	}
	if got.ActionName != ActionName(got.Action) || len(got.Scores) != 3 {
		t.Fatalf("action fields: %+v", got)
	}
	if got.Sentinel.Size != 1 || got.Sentinel.Active {
		t.Fatalf("sentinel status %+v", got.Sentinel)
	}
	if len(rec.saved) != 1 || len(rec.published) != 1 || len(rec.broadcast) != 1 {
		t.Fatalf("fan out saved=%d published=%d broadcast=%d", len(rec.saved), len(rec.published), len(rec.broadcast))
	}
	if m.decisions != 1 {
		t.Fatalf("decisions recorded %d", m.decisions)
	}

	recent, err := e.Recent(context.Background(), "BTCUSDT", 5)
	if err != nil || len(recent) != 1 || recent[0].ID != "dec-1" {
		t.Fatalf("recent = %v, %v", recent, err)
	}
}

func TestDecideSymbolSurvivesStoreFailure(t *testing.T) {
	rec := &recordingDecisions{failSave: errors.New("clickhouse down")}
	m := newCountingMetrics()
	d := Deps{Features: &candleStore{}, Decisions: rec, Publisher: rec, Metrics: m}
	e := newEngine(t, smallCoreConfig(), d, EngineConfig{Passes: 2, Seed: 2, Candles: 40, Physics: losses.DefaultPhysicsConfig()})

	if _, err := e.DecideSymbol(context.Background(), "ETHUSDT", "retail", 40); err != nil {
		t.Fatalf("decide symbol: %v", err)
	}
	if m.errors["decision_store"] != 1 {
		t.Fatalf("store failure not counted: %v", m.errors)
	}
	if len(rec.published) != 1 {
		t.Fatalf("publish skipped after store failure")
	}
}

func TestDecideSymbolTooFewCandles(t *testing.T) {
	d := Deps{Features: &candleStore{}, Decisions: &recordingDecisions{}, Publisher: &recordingDecisions{}}
	e := newEngine(t, smallCoreConfig(), d, EngineConfig{Passes: 2, Seed: 2})
	e.cfg.Candles = 10
	_, err := e.DecideSymbol(context.Background(), "BTCUSDT", "", 10)
	if !errors.Is(err, tensor.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}
