package losses

import (
	"errors"
	"math"
	"testing"

	"AstraMind/internal/domain/models"
	"AstraMind/pkg/tensor"
)

func acsWithMoves(moves ...[]float64) models.ACS {
	acs := make(models.ACS, len(moves))
	for k, ms := range moves {
		row := make([]models.Scenario, len(ms))
		for h, m := range ms {
			row[h] = models.Scenario{ExpectedMove: m}
		}
		acs[k] = [][]models.Scenario{row}
	}
	return acs
}

func TestPhysicsLossPenalisesExcessMoves(t *testing.T) {
	acs := acsWithMoves(
		[]float64{0.1, -0.5, 0.2}, // excess 0, 0.3, 0 -> mean 0.1
		[]float64{0.6, 0.6, -0.6}, // excess 0.4 each -> mean 0.4
	)
	got, err := PhysicsLoss(acs, nil, DefaultPhysicsConfig())
	if err != nil {
		t.Fatalf("physics loss: %v", err)
	}
	if math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("loss = %v, want 0.5", got)
	}
}

func TestPhysicsLossVolumeSmoothness(t *testing.T) {
	acs := acsWithMoves([]float64{0})
	vol := [][]float64{{1, 2, 4}, {0, 0, 0}}
	cfg := PhysicsConfig{MaxMovePerStep: 0.2, VolumeSmoothLambda: 2}
	got, err := PhysicsLoss(acs, vol, cfg)
	if err != nil {
		t.Fatalf("physics loss: %v", err)
	}
	// mean |dv| = (1 + 2 + 0 + 0) / 4 = 0.75
	if math.Abs(got-1.5) > 1e-12 {
		t.Fatalf("loss = %v, want 1.5", got)
	}
	noLambda, _ := PhysicsLoss(acs, vol, DefaultPhysicsConfig())
	if noLambda != 0 {
		t.Fatalf("volume term must be off without lambda, got %v", noLambda)
	}
}

func TestPhysicsLossRejectsNonFinite(t *testing.T) {
	acs := acsWithMoves([]float64{math.NaN()})
	if _, err := PhysicsLoss(acs, nil, DefaultPhysicsConfig()); !errors.Is(err, tensor.ErrNumeric) {
		t.Fatalf("expected numeric error, got %v", err)
	}
}

func TestVarianceOfEntropyIsUnbiased(t *testing.T) {
	got, err := VarianceOfEntropy([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("variance: %v", err)
	}
	// sum of squared deviations 5, divided by n-1 = 3
	if math.Abs(got-5.0/3.0) > 1e-12 {
		t.Fatalf("variance = %v, want 5/3", got)
	}
	if _, err := VarianceOfEntropy([]float64{1}); !errors.Is(err, tensor.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestWeakLabelNLL(t *testing.T) {
	probs := [][]float64{{1, 0}, {0.5, 0.5}}
	got, err := WeakLabelNLL(probs, []int{0, 1})
	if err != nil {
		t.Fatalf("nll: %v", err)
	}
	want := (-math.Log(1+1e-8) - math.Log(0.5+1e-8)) / 2
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("nll = %v, want %v", got, want)
	}
	if _, err := WeakLabelNLL(probs, []int{0, 2}); !errors.Is(err, tensor.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
}
