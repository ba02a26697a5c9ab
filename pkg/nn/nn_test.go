package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"AstraMind/pkg/tensor"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func randDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return mat.NewDense(r, c, data)
}

func TestSoftmaxSumsToOne(t *testing.T) {
	p := Softmax([]float64{1000, 999, -5, 0})
	if math.Abs(floats.Sum(p)-1) > 1e-12 {
		t.Fatalf("sum = %v", floats.Sum(p))
	}
	for _, v := range p {
		if v < 0 || math.IsNaN(v) {
			t.Fatalf("invalid prob %v", v)
		}
	}
	if floats.MaxIdx(p) != 0 {
		t.Fatalf("argmax = %d", floats.MaxIdx(p))
	}
}

func TestLayerNormZeroMeanUnitVar(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x := randDense(rng, 3, 16)
	y := NewLayerNorm(16).Forward(x)
	for i := 0; i < 3; i++ {
		row := y.RawRowView(i)
		mean := floats.Sum(row) / 16
		if math.Abs(mean) > 1e-9 {
			t.Fatalf("row %d mean %v", i, mean)
		}
		var v float64
		for _, e := range row {
			v += e * e
		}
		v /= 16
		if math.Abs(v-1) > 1e-3 {
			t.Fatalf("row %d var %v", i, v)
		}
	}
}

func TestDropoutDeterministicIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x := randDense(rng, 4, 4)
	want := mat.DenseCopyOf(x)
	Dropout{P: 0.5}.Forward(x, Deterministic())
	if !mat.Equal(x, want) {
		t.Fatalf("deterministic dropout changed input")
	}
}

func TestDropoutStochasticMasksAndScales(t *testing.T) {
	x := mat.NewDense(50, 50, nil)
	x.Apply(func(_, _ int, _ float64) float64 { return 1 }, x)
	Dropout{P: 0.5}.Forward(x, Stochastic(3))
	zeros, twos := 0, 0
	x.Apply(func(_, _ int, v float64) float64 {
		switch v {
		case 0:
			zeros++
		case 2:
			twos++
		}
		return v
	}, x)
	if zeros+twos != 2500 {
		t.Fatalf("unexpected values: zeros=%d twos=%d", zeros, twos)
	}
	if zeros < 1000 || zeros > 1500 {
		t.Fatalf("zeros = %d, expected about half", zeros)
	}
}

func TestPositionalEncodingRejectsLongSequence(t *testing.T) {
	pe := NewPositionalEncoding(8, 4)
	_, err := pe.Forward(mat.NewDense(5, 8, nil))
	if !errors.Is(err, tensor.ErrShape) {
		t.Fatalf("expected shape error, got %v", err)
	}
	y, err := pe.Forward(mat.NewDense(2, 8, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// position 0: sin(0)=0, cos(0)=1
	if y.At(0, 0) != 0 || y.At(0, 1) != 1 {
		t.Fatalf("unexpected row 0: %v", y.RawRowView(0))
	}
}

func TestLSTMOutputShapeAndRange(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	l := NewLSTM(5, 7, 2, 0.2, rng)
	y := l.Forward(randDense(rng, 9, 5), Deterministic())
	r, c := y.Dims()
	if r != 9 || c != 7 {
		t.Fatalf("dims = %dx%d", r, c)
	}
	for _, v := range y.RawMatrix().Data {
		if v <= -1 || v >= 1 {
			t.Fatalf("hidden state out of (-1,1): %v", v)
		}
	}
}

func TestEncoderLayerDeterministicReproducible(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	e, err := NewEncoderLayer(8, 4, 0.2, rng)
	if err != nil {
		t.Fatalf("new encoder: %v", err)
	}
	x := randDense(rng, 6, 8)
	a := e.Forward(x, Deterministic())
	b := e.Forward(x, Deterministic())
	if !mat.Equal(a, b) {
		t.Fatalf("deterministic forward not reproducible")
	}
	s1 := e.Forward(x, Stochastic(1))
	s2 := e.Forward(x, Stochastic(2))
	if mat.Equal(s1, s2) {
		t.Fatalf("stochastic forwards with different seeds should differ")
	}
}

func TestAttentionRejectsIndivisibleHeads(t *testing.T) {
	_, err := NewMultiHeadAttention(10, 4, 0, rand.New(rand.NewSource(1)))
	if !errors.Is(err, tensor.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestModeValid(t *testing.T) {
	if !Deterministic().Valid() || !Stochastic(1).Valid() {
		t.Fatalf("constructed modes must be valid")
	}
	if (Mode{Stochastic: true}).Valid() {
		t.Fatalf("stochastic mode without source must be invalid")
	}
}
