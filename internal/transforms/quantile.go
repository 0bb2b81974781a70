package transforms

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/inferloop/kanon/internal/dataset"
	kmath "github.com/inferloop/kanon/internal/utils/math"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

const boundDigits = 10

// Beautify rounds a boundary to a precision that grows with its magnitude so
// bucket edges stay readable.
func Beautify(v float64) float64 {
	abs := math.Abs(v)
	switch {
	case abs < 1:
		return math.Round(v*10) / 10
	case abs < 10:
		return math.Round(v)
	case abs < 100:
		return roundTo(v, 5)
	case abs < 1000:
		return roundTo(v, 50)
	default:
		return roundTo(v, 500)
	}
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}

// Boundaries computes n+1 strictly increasing cut points covering every value.
// It reports false when values hold fewer than two distinct numbers, in which
// case no binning is possible.
func Boundaries(values []float64, n int) ([]float64, bool) {
	if n < 1 || kmath.Distinct(values) < 2 {
		return nil, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]

	bounds := kmath.Quantiles(sorted, n)
	for i, b := range bounds {
		bounds[i] = Beautify(b)
	}
	sort.Float64s(bounds)

	// Duplicates are kept and nudged so the list keeps n+1 entries.
	for i := 1; i < len(bounds); i++ {
		if bounds[i] <= bounds[i-1] {
			bounds[i] = math.Nextafter(bounds[i-1], math.Inf(1))
		}
	}

	if bounds[0] > lo {
		bounds[0] = lo
	}
	if bounds[n] < hi {
		bounds[n] = hi
	}
	return bounds, true
}

// BucketLabels renders "<lower>-<upper>" for each consecutive boundary pair.
// Edges nudged apart to keep the list strictly increasing print alike, so a
// repeated label gets a " (n)" suffix to keep buckets distinct.
func BucketLabels(bounds []float64) []string {
	labels := make([]string, 0, len(bounds)-1)
	seen := make(map[string]int, len(bounds))
	for i := 0; i+1 < len(bounds); i++ {
		label := fmt.Sprintf("%s-%s", formatBound(bounds[i]), formatBound(bounds[i+1]))
		seen[label]++
		if n := seen[label]; n > 1 {
			label = fmt.Sprintf("%s (%d)", label, n)
		}
		labels = append(labels, label)
	}
	return labels
}

// Bucket returns the index of the bucket holding v. Buckets are (lower, upper]
// except the first, which also includes its lower bound. v must lie within
// [bounds[0], bounds[len-1]].
func Bucket(bounds []float64, v float64) int {
	idx := sort.SearchFloat64s(bounds, v)
	if idx == 0 {
		return 0
	}
	if idx >= len(bounds) {
		return len(bounds) - 2
	}
	return idx - 1
}

// formatBound prints v with at most boundDigits significant digits, which
// hides the ulp offsets added by Boundaries.
func formatBound(v float64) string {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', boundDigits, 64), 64)
	if err != nil {
		rounded = v
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// Quantile replaces a numeric column with quantile bucket labels.
type Quantile struct {
	Column  string
	Buckets int
}

// NewQuantile creates the transform; buckets <= 0 selects the default.
func NewQuantile(column string, buckets int) *Quantile {
	if buckets <= 0 {
		buckets = constants.DefaultQuantileBuckets
	}
	return &Quantile{Column: column, Buckets: buckets}
}

func (q *Quantile) Name() string      { return "quantile" }
func (q *Quantile) Columns() []string { return []string{q.Column} }

func (q *Quantile) Apply(ds *dataset.Dataset) (*dataset.Patch, Stats, error) {
	stats := Stats{Transform: q.Name(), Column: q.Column}

	if q.Buckets < 1 {
		return nil, stats, errors.WrapError(errors.ErrInvalidCategory, errors.ErrorTypeConfiguration, errors.CodeInvalidCategoryNum,
			fmt.Sprintf("column %q", q.Column))
	}
	col, err := requireColumn(ds, q.Column)
	if err != nil {
		return nil, stats, err
	}

	numbers := make([]float64, col.Len())
	valid := make([]bool, col.Len())
	var observed []float64
	for i, v := range col.Values {
		if f, ok := v.Float(); ok {
			numbers[i], valid[i] = f, true
			observed = append(observed, f)
		}
	}

	bounds, ok := Boundaries(observed, q.Buckets)
	if !ok {
		stats.Skipped = true
		return dataset.NewPatch(), stats, nil
	}
	labels := BucketLabels(bounds)

	values := make([]dataset.Value, col.Len())
	for i := range values {
		if !valid[i] {
			values[i] = dataset.String(constants.UnknownValue)
			stats.Unknown++
			continue
		}
		values[i] = dataset.String(labels[Bucket(bounds, numbers[i])])
	}
	stats.Processed = len(values)

	patch := dataset.NewPatch()
	patch.Replace[q.Column] = dataset.NewColumn(q.Column, values)
	return patch, stats, nil
}
