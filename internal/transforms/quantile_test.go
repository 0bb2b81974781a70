package transforms

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/inferloop/kanon/pkg/constants"
)

func TestBeautify(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.44, 0.4},
		{0.46, 0.5},
		{3.4, 3},
		{9.6, 10},
		{12, 10},
		{13, 15},
		{99, 100},
		{124, 100},
		{126, 150},
		{1249, 1000},
		{1251, 1500},
		{-3.6, -4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Beautify(tt.in), 1e-9, "beautify(%v)", tt.in)
	}
}

func TestBoundariesScenario(t *testing.T) {
	values := []float64{1, 2, 3, 4, 100}
	bounds, ok := Boundaries(values, 2)
	require.True(t, ok)
	require.Len(t, bounds, 3)
	assert.Equal(t, 1.0, bounds[0])
	assert.Equal(t, 100.0, bounds[2])

	ds := mustDataset(t, column("price", "1", "2", "3", "4", "100"))
	out, stats := apply(t, NewQuantile("price", 2), ds)

	labels := texts(t, out, "price")
	require.Len(t, labels, 5)
	distinct := map[string]bool{}
	for _, l := range labels {
		assert.NotEqual(t, constants.UnknownValue, l)
		distinct[l] = true
	}
	assert.Len(t, distinct, 2)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, 0, stats.Unknown)
	assert.False(t, stats.Skipped)
}

func TestBoundariesNudgesDuplicates(t *testing.T) {
	bounds, ok := Boundaries([]float64{5, 5, 5, 5, 6}, 4)
	require.True(t, ok)
	require.Len(t, bounds, 5)
	for i := 1; i < len(bounds); i++ {
		assert.Greater(t, bounds[i], bounds[i-1])
	}
	assert.LessOrEqual(t, bounds[0], 5.0)
	assert.GreaterOrEqual(t, bounds[4], 6.0)
}

func TestBucketLabelsStayReadable(t *testing.T) {
	bounds, ok := Boundaries([]float64{1000, 1010, 1020, 1030, 1100}, 4)
	require.True(t, ok)
	require.Len(t, bounds, 5)

	assert.Equal(t, []string{
		"1000-1000",
		"1000-1000 (2)",
		"1000-1000 (3)",
		"1000-1100",
	}, BucketLabels(bounds))
}

func TestBucketEdges(t *testing.T) {
	bounds := []float64{0, 10, 20}
	assert.Equal(t, 0, Bucket(bounds, 0), "lowest bucket is closed")
	assert.Equal(t, 0, Bucket(bounds, 10), "upper bound belongs to the lower bucket")
	assert.Equal(t, 1, Bucket(bounds, 10.5))
	assert.Equal(t, 1, Bucket(bounds, 20))
	assert.Equal(t, []string{"0-10", "10-20"}, BucketLabels(bounds))
}

func TestQuantileNoOpOnDegenerateInput(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
	}{
		{"single value", []string{"42", "", "abc"}},
		{"constant column", []string{"7", "7", "7"}},
		{"no numbers", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := mustDataset(t, column("price", tt.cells...))
			patch, stats, err := NewQuantile("price", 3).Apply(ds)
			require.NoError(t, err)
			assert.True(t, patch.Empty())
			assert.True(t, stats.Skipped)

			out, err := ds.Apply(patch)
			require.NoError(t, err)
			assert.Equal(t, tt.cells, texts(t, out, "price"))
		})
	}
}

func TestQuantileUnknownForNonNumeric(t *testing.T) {
	ds := mustDataset(t, column("quantity", "5", "", "n/a", "50", "100"))
	out, stats := apply(t, NewQuantile("quantity", 2), ds)
	labels := texts(t, out, "quantity")
	assert.Equal(t, constants.UnknownValue, labels[1])
	assert.Equal(t, constants.UnknownValue, labels[2])
	assert.Equal(t, 2, stats.Unknown)
}

func TestBoundariesProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Float64Range(-1e6, 1e6), 2, 200).Draw(t, "values")
		n := rapid.IntRange(1, 12).Draw(t, "n")

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}

		bounds, ok := Boundaries(values, n)
		if lo == hi {
			if ok {
				t.Fatalf("constant input must not be binned")
			}
			return
		}
		if !ok {
			t.Fatalf("expected boundaries for %d values", len(values))
		}
		if len(bounds) != n+1 {
			t.Fatalf("got %d boundaries, want %d", len(bounds), n+1)
		}
		for i := 1; i < len(bounds); i++ {
			if !(bounds[i] > bounds[i-1]) {
				t.Fatalf("boundaries not strictly increasing at %d: %v", i, bounds)
			}
		}
		if bounds[0] > lo || bounds[n] < hi {
			t.Fatalf("boundaries %v do not cover [%v, %v]", bounds, lo, hi)
		}
		for _, v := range values {
			b := Bucket(bounds, v)
			if b < 0 || b >= n {
				t.Fatalf("value %v assigned to bucket %d", v, b)
			}
			if !(v <= bounds[b+1]) || (b > 0 && !(v > bounds[b])) {
				t.Fatalf("value %v outside bucket %d of %v", v, b, bounds)
			}
		}
	})
}
