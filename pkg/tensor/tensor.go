package tensor

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Tensor3 is a row-major [B, T, F] batch of windows.
type Tensor3 struct {
	B, T, F int
	Data    []float64
}

// New3 allocates a zeroed tensor.
func New3(b, t, f int) *Tensor3 {
	return &Tensor3{B: b, T: t, F: f, Data: make([]float64, b*t*f)}
}

// FromSlices copies a nested [B][T][F] slice. Rows must be rectangular.
func FromSlices(x [][][]float64) (*Tensor3, error) {
	if len(x) == 0 {
		return nil, Shapef("tensor", "empty batch")
	}
	t := len(x[0])
	if t == 0 {
		return nil, Shapef("tensor", "window has no time steps")
	}
	f := len(x[0][0])
	out := New3(len(x), t, f)
	for b, win := range x {
		if len(win) != t {
			return nil, Shapef("tensor", "batch %d has %d steps, want %d", b, len(win), t)
		}
		for ti, row := range win {
			if len(row) != f {
				return nil, Shapef("tensor", "batch %d step %d has %d features, want %d", b, ti, len(row), f)
			}
			copy(out.Data[(b*t+ti)*f:], row)
		}
	}
	return out, nil
}

// At returns element [b, t, f].
func (x *Tensor3) At(b, t, f int) float64 {
	return x.Data[(b*x.T+t)*x.F+f]
}

// Set assigns element [b, t, f].
func (x *Tensor3) Set(b, t, f int, v float64) {
	x.Data[(b*x.T+t)*x.F+f] = v
}

// Sample returns window b as a T x F matrix sharing the tensor's storage.
func (x *Tensor3) Sample(b int) *mat.Dense {
	n := x.T * x.F
	return mat.NewDense(x.T, x.F, x.Data[b*n:(b+1)*n])
}

// Validate checks the tensor against the expected feature count.
func (x *Tensor3) Validate(op string, features int) error {
	if x == nil {
		return Shapef(op, "nil window")
	}
	if x.B <= 0 || x.T <= 0 || x.F <= 0 {
		return Shapef(op, "invalid dims [%d,%d,%d]", x.B, x.T, x.F)
	}
	if len(x.Data) != x.B*x.T*x.F {
		return Shapef(op, "data length %d does not match [%d,%d,%d]", len(x.Data), x.B, x.T, x.F)
	}
	if x.F != features {
		return Shapef(op, "feature dim %d, want %d", x.F, features)
	}
	return nil
}

// Finite reports whether every element is a finite number.
func Finite(xs []float64) bool {
	for _, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
