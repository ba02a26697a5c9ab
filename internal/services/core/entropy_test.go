package core

import (
	"math"
	"math/rand"
	"testing"

	"AstraMind/pkg/nn"
)

func TestPredictiveEntropyOneHotIsZero(t *testing.T) {
	for k := 0; k < 5; k++ {
		p := make([]float64, 5)
		p[k] = 1
		if h := PredictiveEntropy(p); h != 0 {
			t.Fatalf("one-hot %d entropy = %v", k, h)
		}
	}
}

func TestPredictiveEntropyUniformIsLogN(t *testing.T) {
	for _, n := range []int{2, 3, 5, 10} {
		p := make([]float64, n)
		for i := range p {
			p[i] = 1 / float64(n)
		}
		if h := PredictiveEntropy(p); math.Abs(h-math.Log(float64(n))) > 1e-12 {
			t.Fatalf("n=%d entropy = %v, want %v", n, h, math.Log(float64(n)))
		}
	}
}

func TestPredictiveEntropyNonNegativeAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	for i := 0; i < 200; i++ {
		logits := make([]float64, 3)
		for j := range logits {
			logits[j] = rng.NormFloat64() * 5
		}
		p := nn.Softmax(logits)
		h := PredictiveEntropy(p)
		if h < 0 || h > math.Log(3)+1e-12 {
			t.Fatalf("entropy %v out of [0, log 3] for %v", h, p)
		}
	}
}

func TestMeanEntropy(t *testing.T) {
	rows := [][]float64{{1, 0}, {0.5, 0.5}}
	if got, want := MeanEntropy(rows), math.Log(2)/2; math.Abs(got-want) > 1e-12 {
		t.Fatalf("mean entropy = %v, want %v", got, want)
	}
	if MeanEntropy(nil) != 0 {
		t.Fatalf("empty batch entropy must be 0")
	}
}
