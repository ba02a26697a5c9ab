package core

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// EntropyFloor keeps log away from zero.
const EntropyFloor = 1e-8

// PredictiveEntropy returns -sum p_i * log(max(p_i, EntropyFloor)).
func PredictiveEntropy(p []float64) float64 {
	var h float64
	for _, v := range p {
		h -= v * math.Log(math.Max(v, EntropyFloor))
	}
	return h
}

// MeanEntropy averages PredictiveEntropy over the rows of a batch.
func MeanEntropy(rows [][]float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	hs := make([]float64, len(rows))
	for i, p := range rows {
		hs[i] = PredictiveEntropy(p)
	}
	return stat.Mean(hs, nil)
}
