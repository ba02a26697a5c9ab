package uncertainty

import (
	"context"
	"runtime"

	"AstraMind/internal/domain/models"
	domsvc "AstraMind/internal/domain/service"
	"AstraMind/internal/services/core"
	"AstraMind/pkg/nn"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/floats"
	"golang.org/x/sync/errgroup"
)

// Config tunes the Monte-Carlo estimator.
type Config struct {
	Passes      int
	Parallelism int
	Seed        int64
}

// DefaultConfig runs 10 passes across all CPUs.
func DefaultConfig() Config {
	return Config{Passes: 10, Parallelism: runtime.GOMAXPROCS(0), Seed: 1}
}

// Estimator averages stochastic forward passes of a predictor.
type Estimator struct {
	model domsvc.Predictor
	cfg   Config
}

func New(model domsvc.Predictor, cfg Config) *Estimator {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &Estimator{model: model, cfg: cfg}
}

// Estimate runs the configured number of passes with the configured seed.
func (e *Estimator) Estimate(ctx context.Context, short, mid, long *tensor.Tensor3) (models.Uncertainty, error) {
	return e.EstimateN(ctx, short, mid, long, e.cfg.Passes, e.cfg.Seed)
}

// EstimateN runs passes stochastic forwards. Pass i draws dropout masks from
// seed+i; results are reduced in pass order so a given seed always yields
// the same estimate regardless of scheduling.
func (e *Estimator) EstimateN(ctx context.Context, short, mid, long *tensor.Tensor3, passes int, seed int64) (models.Uncertainty, error) {
	if passes < 1 {
		return models.Uncertainty{}, tensor.Configf("mc_predict", "passes must be >= 1, got %d", passes)
	}
	results := make([]models.Inference, passes)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for i := 0; i < passes; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := e.model.Forward(short, mid, long, nn.Stochastic(seed+int64(i)))
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Uncertainty{}, err
	}

	pb := average(results, func(o models.Inference) [][]float64 { return o.BehaviorProbs })
	pa := average(results, func(o models.Inference) [][]float64 { return o.ActionProbs })
	hb := core.MeanEntropy(pb)
	ha := core.MeanEntropy(pa)
	return models.Uncertainty{
		BehaviorProbs: pb,
		ActionProbs:   pa,
		Entropy:       (hb + ha) / 2,
		Passes:        passes,
	}, nil
}

func average(results []models.Inference, pick func(models.Inference) [][]float64) [][]float64 {
	first := pick(results[0])
	out := make([][]float64, len(first))
	for b := range first {
		out[b] = make([]float64, len(first[b]))
	}
	for _, r := range results {
		for b, row := range pick(r) {
			floats.Add(out[b], row)
		}
	}
	for _, row := range out {
		floats.Scale(1/float64(len(results)), row)
	}
	return out
}
