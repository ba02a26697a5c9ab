package sentinel

import "sort"

// KSDistance returns the two-sample Kolmogorov-Smirnov statistic
// max |Fa(v) - Fb(v)| over every distinct value v in a and b. The empirical
// CDFs are right-continuous: a sample equal to v counts as at or below v.
// Either input being empty yields 0.
func KSDistance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	xa := sortedCopy(a)
	xb := sortedCopy(b)
	na, nb := float64(len(xa)), float64(len(xb))

	var d float64
	for _, v := range union(xa, xb) {
		fa := float64(countAtOrBelow(xa, v)) / na
		fb := float64(countAtOrBelow(xb, v)) / nb
		diff := fa - fb
		if diff < 0 {
			diff = -diff
		}
		if diff > d {
			d = diff
		}
	}
	return d
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}

// countAtOrBelow is the right-sided insertion index of v in sorted xs.
func countAtOrBelow(xs []float64, v float64) int {
	return sort.Search(len(xs), func(i int) bool { return xs[i] > v })
}

// union merges two sorted slices into their sorted distinct values.
func union(a, b []float64) []float64 {
	out := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	push := func(v float64) {
		if len(out) == 0 || out[len(out)-1] != v {
			out = append(out, v)
		}
	}
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] <= b[j]):
			push(a[i])
			i++
		default:
			push(b[j])
			j++
		}
	}
	return out
}
