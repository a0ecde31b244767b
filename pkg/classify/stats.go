package classify

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Span returns n evenly spaced parameters over [lo, hi], ends included.
// n < 2 yields the midpoint.
func Span(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{0.5 * (lo + hi)}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// GridSide is the per-direction sample count for a square grid of about
// target samples.
func GridSide(target int) int {
	if target < 1 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(target))))
}

// CellCenters returns the n cell-centre fractions (i+0.5)/n in (0, 1).
// Cell centres keep samples off seams and degenerate domain edges.
func CellCenters(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (float64(i) + 0.5) / float64(n)
	}
	return out
}

// MeanVariance returns the population mean and variance of xs.
func MeanVariance(xs []float64) (mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return stat.PopMeanVariance(xs, nil)
}

// Variation returns the coefficient of variation: the population standard
// deviation divided by the mean, or by 1 when the mean is at or below eps.
func Variation(xs []float64, eps float64) (mean, cv float64) {
	mean, variance := MeanVariance(xs)
	denom := mean
	if denom <= eps {
		denom = 1
	}
	return mean, math.Sqrt(variance) / denom
}

// Constant reports whether samples are constant: variance over squared
// mean below threshold, or raw variance below floor when |mean| <= eps.
func Constant(mean, variance, threshold, floor, eps float64) bool {
	if math.Abs(mean) <= eps {
		return variance < floor
	}
	return variance/(mean*mean) < threshold
}

// RMS returns the root mean square of xs, 0 for an empty slice.
func RMS(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(xs, xs) / float64(len(xs)))
}
