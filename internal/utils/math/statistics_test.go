package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		median float64
	}{
		{"empty", nil, 0, 0},
		{"odd", []float64{3, 1, 2}, 2, 2},
		{"even", []float64{6, 4}, 5, 5},
		{"skewed", []float64{1, 1, 1, 9}, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.mean, Mean(tt.values), 1e-12)
			assert.InDelta(t, tt.median, Median(tt.values), 1e-12)
		})
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Median(values)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestQuantiles(t *testing.T) {
	q := Quantiles([]float64{1, 2, 3, 4, 100}, 2)
	assert.Len(t, q, 3)
	assert.Equal(t, 1.0, q[0])
	assert.Equal(t, 100.0, q[2])
	assert.True(t, q[1] > 1 && q[1] < 100)
}

func TestQuantilesInterpolateEmpiricalCDF(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		n      int
		want   []float64
	}{
		{"median falls on a sample", []float64{10, 20, 30, 40}, 2, []float64{10, 20, 40}},
		{"quartiles", []float64{10, 20, 30, 40}, 4, []float64{10, 10, 20, 30, 40}},
		{"between samples", []float64{1, 2, 3, 4, 100}, 2, []float64{1, 2.5, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quantiles(tt.sorted, tt.n)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestMinDistinct(t *testing.T) {
	assert.Equal(t, -2.0, Min([]float64{3, -2, 7}))
	assert.Equal(t, 2, Distinct([]float64{1, 1, 2}))
}
