package losses

import (
	"math"

	"AstraMind/internal/domain/models"
	"AstraMind/internal/services/core"
	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/stat"
)

// PhysicsConfig bounds plausible per-step moves.
type PhysicsConfig struct {
	MaxMovePerStep     float64
	VolumeSmoothLambda float64
}

// DefaultPhysicsConfig returns max move 0.2 and no volume smoothing.
func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{MaxMovePerStep: 0.2}
}

// PhysicsLoss sums, over actions, the mean excess of |expected_move| above
// MaxMovePerStep. When VolumeSmoothLambda > 0 and volume is non-empty it adds
// lambda times the mean absolute step-to-step change of volume ([B][T]).
func PhysicsLoss(acs models.ACS, volume [][]float64, cfg PhysicsConfig) (float64, error) {
	if len(acs) == 0 {
		return 0, tensor.Shapef("physics_loss", "empty acs")
	}
	var penalty float64
	for k, per := range acs {
		var sum float64
		n := 0
		for _, hs := range per {
			for _, sc := range hs {
				if math.IsNaN(sc.ExpectedMove) || math.IsInf(sc.ExpectedMove, 0) {
					return 0, tensor.Numericf("physics_loss", "expected move of action %d is not finite", k)
				}
				sum += math.Max(math.Abs(sc.ExpectedMove)-cfg.MaxMovePerStep, 0)
				n++
			}
		}
		if n == 0 {
			return 0, tensor.Shapef("physics_loss", "action %d has no scenarios", k)
		}
		penalty += sum / float64(n)
	}

	if cfg.VolumeSmoothLambda != 0 && len(volume) > 0 {
		dv, err := meanAbsDiff(volume)
		if err != nil {
			return 0, err
		}
		penalty += cfg.VolumeSmoothLambda * dv
	}
	return penalty, nil
}

func meanAbsDiff(v [][]float64) (float64, error) {
	t := len(v[0])
	if t < 2 {
		return 0, tensor.Shapef("physics_loss", "volume needs at least 2 steps, got %d", t)
	}
	var sum float64
	for b, row := range v {
		if len(row) != t {
			return 0, tensor.Shapef("physics_loss", "volume row %d has %d steps, want %d", b, len(row), t)
		}
		for i := 1; i < t; i++ {
			sum += math.Abs(row[i] - row[i-1])
		}
	}
	return sum / float64(len(v)*(t-1)), nil
}

// VarianceOfEntropy returns the unbiased sample variance of a sequence of
// entropy scalars.
func VarianceOfEntropy(entropies []float64) (float64, error) {
	if len(entropies) < 2 {
		return 0, tensor.Configf("entropy_variance", "need at least 2 values, got %d", len(entropies))
	}
	return stat.Variance(entropies, nil), nil
}

// WeakLabelNLL is the mean negative log-likelihood of integer labels under
// probs, with probabilities floored at core.EntropyFloor.
func WeakLabelNLL(probs [][]float64, labels []int) (float64, error) {
	if len(probs) == 0 || len(probs) != len(labels) {
		return 0, tensor.Shapef("weak_label_nll", "%d rows for %d labels", len(probs), len(labels))
	}
	var sum float64
	for i, p := range probs {
		y := labels[i]
		if y < 0 || y >= len(p) {
			return 0, tensor.Shapef("weak_label_nll", "label %d out of range for %d classes", y, len(p))
		}
		sum -= math.Log(p[y] + core.EntropyFloor)
	}
	return sum / float64(len(probs)), nil
}
