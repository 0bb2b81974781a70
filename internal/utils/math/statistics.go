package math

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// Median calculates the median of a slice of float64 values. For an even
// number of values it is the mean of the two middle values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Min returns the smallest value, or 0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}

// Quantiles returns the values at the evenly spaced levels 0, 1/n, ..., 1
// using gonum's LinInterp, which interpolates the empirical CDF: for
// [10 20 30 40] the 0.5 level is 20, not the 25 of numpy's default linear
// method. sorted must be in increasing order and non-empty.
func Quantiles(sorted []float64, n int) []float64 {
	points := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		p := float64(i) / float64(n)
		if i == n {
			p = 1
		}
		points[i] = stat.Quantile(p, stat.LinInterp, sorted, nil)
	}
	return points
}

// Distinct counts the distinct values in a slice.
func Distinct(values []float64) int {
	seen := make(map[float64]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}
