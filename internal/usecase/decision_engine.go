package usecase

import (
	"context"
	"fmt"
	"time"

	"AstraMind/internal/domain/models"
	domrepo "AstraMind/internal/domain/repository"
	domsvc "AstraMind/internal/domain/service"
	"AstraMind/internal/services/features"
	"AstraMind/internal/services/gating"
	"AstraMind/internal/services/losses"
	applogger "AstraMind/pkg/logger"
	"AstraMind/pkg/metrics"
	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"github.com/google/uuid"
)

// EngineConfig holds the defaults applied when a request leaves them out.
type EngineConfig struct {
	Passes  int
	Seed    int64
	Regime  string
	Tau     *float64
	Candles int
	Physics losses.PhysicsConfig
}

// Deps groups the collaborators of a DecisionEngine.
type Deps struct {
	Model       domsvc.Predictor
	Estimator   domsvc.UncertaintyEstimator
	Gate        domsvc.ActionGate
	Features    domrepo.FeatureStore
	Decisions   domrepo.DecisionStore
	Publisher   domrepo.DecisionPublisher
	Broadcaster domrepo.Broadcaster
	Sentinels   *SentinelRegistry
	Metrics     domrepo.Metrics
	Logger      *applogger.Logger
}

// DecisionEngine runs the full inference, uncertainty and gating pipeline.
type DecisionEngine struct {
	deps  Deps
	cfg   EngineConfig
	now   func() time.Time
	newID func() string
}

func NewDecisionEngine(d Deps, cfg EngineConfig) *DecisionEngine {
	if d.Logger == nil {
		d.Logger = applogger.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if cfg.Passes <= 0 {
		cfg.Passes = 10
	}
	if cfg.Candles < features.MinCandles {
		cfg.Candles = features.MinCandles
	}
	return &DecisionEngine{
		deps:  d,
		cfg:   cfg,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Config returns the engine defaults.
func (e *DecisionEngine) Config() EngineConfig { return e.cfg }

// ResolveTau applies the threshold precedence: explicit tau, request regime,
// configured tau, configured regime. It also returns the effective regime.
func (e *DecisionEngine) ResolveTau(regime string, tau *float64) (float64, string) {
	if regime == "" {
		regime = e.cfg.Regime
		if tau == nil {
			tau = e.cfg.Tau
		}
	}
	if tau != nil {
		return *tau, regime
	}
	return gating.TauForRegime(regime), regime
}

// Infer runs a single forward pass, stochastic when asked.
func (e *DecisionEngine) Infer(ctx context.Context, ws models.WindowSet, stochastic bool, seed int64) (models.Inference, error) {
	short, mid, long, err := toTensors(ws)
	if err != nil {
		return models.Inference{}, err
	}
	mode := nn.Deterministic()
	if stochastic {
		mode = nn.Stochastic(seed)
	}
	defer e.observe("forward", time.Now())
	out, err := e.deps.Model.Forward(short, mid, long, mode)
	if err != nil {
		e.deps.Metrics.RecordError(errKind(err))
		return models.Inference{}, fmt.Errorf("infer: %w", err)
	}
	return out, nil
}

// Uncertainty runs the Monte-Carlo estimator. passes <= 0 uses the configured count.
func (e *DecisionEngine) Uncertainty(ctx context.Context, ws models.WindowSet, passes int, seed int64) (models.Uncertainty, error) {
	short, mid, long, err := toTensors(ws)
	if err != nil {
		return models.Uncertainty{}, err
	}
	return e.estimate(ctx, short, mid, long, passes, seed)
}

// Gate scores externally supplied scenarios.
func (e *DecisionEngine) Gate(acs models.ACS, entropy float64, regime string, tau *float64) (models.GateDecision, error) {
	t, _ := e.ResolveTau(regime, tau)
	dec, err := e.deps.Gate.Select(acs, entropy, t)
	if err != nil {
		e.deps.Metrics.RecordError(errKind(err))
		return models.GateDecision{}, fmt.Errorf("gate: %w", err)
	}
	return dec, nil
}

// Decide runs a deterministic forward for the scenarios, the MC estimator for
// entropy, then the gate, and reports the physics penalty of the scenarios.
func (e *DecisionEngine) Decide(ctx context.Context, ws models.WindowSet, passes int, seed int64, regime string, tau *float64) (models.DecisionBatch, error) {
	short, mid, long, err := toTensors(ws)
	if err != nil {
		return models.DecisionBatch{}, err
	}
	return e.decide(ctx, short, mid, long, nil, passes, seed, regime, tau)
}

func (e *DecisionEngine) decide(ctx context.Context, short, mid, long *tensor.Tensor3, volume [][]float64, passes int, seed int64, regime string, tau *float64) (models.DecisionBatch, error) {
	start := time.Now()
	defer e.observe("decide", start)

	inf, err := e.deps.Model.Forward(short, mid, long, nn.Deterministic())
	if err != nil {
		e.deps.Metrics.RecordError(errKind(err))
		return models.DecisionBatch{}, fmt.Errorf("decide: forward: %w", err)
	}
	e.observe("forward", start)

	unc, err := e.estimate(ctx, short, mid, long, passes, seed)
	if err != nil {
		return models.DecisionBatch{}, fmt.Errorf("decide: %w", err)
	}

	t, regime := e.ResolveTau(regime, tau)
	gate, err := e.deps.Gate.Select(inf.ACS, unc.Entropy, t)
	if err != nil {
		e.deps.Metrics.RecordError(errKind(err))
		return models.DecisionBatch{}, fmt.Errorf("decide: gate: %w", err)
	}

	phys, err := losses.PhysicsLoss(inf.ACS, volume, e.cfg.Physics)
	if err != nil {
		e.deps.Metrics.RecordError(errKind(err))
		return models.DecisionBatch{}, fmt.Errorf("decide: physics: %w", err)
	}

	for b := range gate.Best {
		e.deps.Metrics.RecordDecision(regime, ActionName(gate.Best[b]), gate.Act[b])
	}
	return models.DecisionBatch{
		Inference:   inf,
		Uncertainty: unc,
		Gate:        gate,
		PhysicsLoss: phys,
		Regime:      regime,
	}, nil
}

func (e *DecisionEngine) estimate(ctx context.Context, short, mid, long *tensor.Tensor3, passes int, seed int64) (models.Uncertainty, error) {
	if passes <= 0 {
		passes = e.cfg.Passes
	}
	if seed == 0 {
		seed = e.cfg.Seed
	}
	defer e.observe("mc_estimate", time.Now())
	unc, err := e.deps.Estimator.EstimateN(ctx, short, mid, long, passes, seed)
	if err != nil {
		e.deps.Metrics.RecordError(errKind(err))
		return models.Uncertainty{}, fmt.Errorf("uncertainty: %w", err)
	}
	e.deps.Metrics.RecordEntropy(unc.Entropy)
	return unc, nil
}

// Window loads the latest n candles of symbol at tf and builds its feature window.
func (e *DecisionEngine) Window(ctx context.Context, symbol string, tf domrepo.Timeframe, n int) ([][]float64, []models.Candle, error) {
	candles, err := e.deps.Features.GetLatestNCandles(ctx, symbol, n, tf)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s candles: %w", tf, err)
	}
	w, err := features.BuildWindow(candles)
	if err != nil {
		return nil, nil, fmt.Errorf("%s window: %w", tf, err)
	}
	return w, candles, nil
}

// DecideSymbol builds the three timescale windows of symbol from the feature
// store and decides on them. Once the decision exists, sentinel, persistence,
// publish and broadcast failures are logged and counted but not returned.
func (e *DecisionEngine) DecideSymbol(ctx context.Context, symbol, regime string, n int) (models.Decision, error) {
	if n <= 0 {
		n = e.cfg.Candles
	}
	var (
		windows [3][][]float64
		short   []models.Candle
	)
	for i, tf := range domrepo.Timeframes() {
		w, candles, err := e.Window(ctx, symbol, tf, n)
		if err != nil {
			e.deps.Metrics.RecordError("feature_load")
			return models.Decision{}, err
		}
		windows[i] = w
		if i == 0 {
			short = candles
		}
	}
	ws := models.WindowSet{
		Short: [][][]float64{windows[0]},
		Mid:   [][][]float64{windows[1]},
		Long:  [][][]float64{windows[2]},
	}
	s, m, l, err := toTensors(ws)
	if err != nil {
		return models.Decision{}, err
	}

	volume := [][]float64{make([]float64, len(short))}
	for i, c := range short {
		volume[0][i] = c.Volume
	}
	batch, err := e.decide(ctx, s, m, l, volume, 0, 0, regime, nil)
	if err != nil {
		return models.Decision{}, err
	}

	d := decisionFromBatch(batch, 0)
	d.ID = e.newID()
	d.Symbol = symbol
	d.Timestamp = e.now().UTC()

	if ret, ok := features.LatestLogReturn(short); ok && e.deps.Sentinels != nil {
		st, err := e.deps.Sentinels.Update(ctx, symbol, ret, batch.Uncertainty.Entropy)
		if err != nil {
			e.deps.Logger.Warn("sentinel update failed", applogger.String("symbol", symbol), applogger.Error(err))
		} else {
			d.Sentinel = st
		}
	}

	e.fanOut(ctx, d)
	return d, nil
}

// Recent returns the latest persisted decisions of symbol, newest first.
func (e *DecisionEngine) Recent(ctx context.Context, symbol string, limit int) ([]models.Decision, error) {
	ds, err := e.deps.Decisions.RecentDecisions(ctx, symbol, limit)
	if err != nil {
		e.deps.Metrics.RecordError("decision_store")
		return nil, fmt.Errorf("recent decisions: %w", err)
	}
	return ds, nil
}

func (e *DecisionEngine) fanOut(ctx context.Context, d models.Decision) {
	log := e.deps.Logger.With(applogger.String("symbol", d.Symbol), applogger.String("decision_id", d.ID))
	if err := e.deps.Decisions.SaveDecision(ctx, d); err != nil {
		e.deps.Metrics.RecordError("decision_store")
		log.Warn("persist decision failed", applogger.Error(err))
	}
	if err := e.deps.Publisher.PublishDecision(ctx, d); err != nil {
		e.deps.Metrics.RecordError("decision_publish")
		log.Warn("publish decision failed", applogger.Error(err))
	}
	if e.deps.Broadcaster != nil {
		e.deps.Broadcaster.Broadcast(d)
	}
	log.Info("decision",
		applogger.String("action", d.ActionName),
		applogger.Bool("act", d.Act),
		applogger.Float64("entropy", d.Entropy),
		applogger.Float64("tau", d.Tau),
		applogger.Bool("safe", d.Sentinel.Safe),
	)
}

func (e *DecisionEngine) observe(stage string, start time.Time) {
	e.deps.Metrics.RecordLatency(stage, time.Since(start).Seconds())
}

// ActionName labels action index k in logs, metrics and decisions.
func ActionName(k int) string {
	return fmt.Sprintf("action_%d", k)
}

func decisionFromBatch(batch models.DecisionBatch, b int) models.Decision {
	best := batch.Gate.Best[b]
	return models.Decision{
		Regime:      batch.Regime,
		Action:      best,
		ActionName:  ActionName(best),
		Act:         batch.Gate.Act[b],
		Tau:         batch.Gate.Tau,
		Scores:      batch.Gate.Scores[b],
		Entropy:     batch.Uncertainty.Entropy,
		Behavior:    batch.Uncertainty.BehaviorProbs[b],
		ActionProbs: batch.Uncertainty.ActionProbs[b],
		PhysicsLoss: batch.PhysicsLoss,
	}
}

func toTensors(ws models.WindowSet) (short, mid, long *tensor.Tensor3, err error) {
	if short, err = tensor.FromSlices(ws.Short); err != nil {
		return nil, nil, nil, fmt.Errorf("short window: %w", err)
	}
	if mid, err = tensor.FromSlices(ws.Mid); err != nil {
		return nil, nil, nil, fmt.Errorf("mid window: %w", err)
	}
	if long, err = tensor.FromSlices(ws.Long); err != nil {
		return nil, nil, nil, fmt.Errorf("long window: %w", err)
	}
	return short, mid, long, nil
}

func errKind(err error) string {
	if k := tensor.KindOf(err); k != "" {
		return string(k)
	}
	return "internal"
}
