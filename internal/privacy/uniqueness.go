package privacy

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// Annotate attaches a uniqueness column holding the size of each row's
// equivalence class under every other column of ds. An existing uniqueness
// column is ignored for grouping and overwritten.
func Annotate(ds *dataset.Dataset) (*dataset.Dataset, Metrics, error) {
	names := lo.Without(ds.ColumnNames(), constants.ColumnUniqueness)
	columns, err := groupingColumns(ds, names)
	if err != nil {
		return nil, Metrics{Name: MetricFullUniqueness}, err
	}

	keys := rowKeys(ds, columns)
	counts := make(map[string]int)
	for _, key := range keys {
		counts[key]++
	}

	values := make([]dataset.Value, len(keys))
	classes := make([]*EquivalenceClass, 0, len(counts))
	seen := make(map[string]bool, len(counts))
	for r, key := range keys {
		values[r] = dataset.Number(float64(counts[key]))
		if !seen[key] {
			seen[key] = true
			classes = append(classes, &EquivalenceClass{Values: ds.Tuple(r, columns), Key: key, Size: counts[key]})
		}
	}

	annotated, err := ds.WithColumn(dataset.NewColumn(constants.ColumnUniqueness, values))
	if err != nil {
		return nil, Metrics{Name: MetricFullUniqueness}, err
	}
	return annotated, ComputeMetrics(MetricFullUniqueness, classes), nil
}

// ValidatePercent checks a suppression percentage.
func ValidatePercent(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 100 {
		return errors.WrapError(errors.ErrInvalidPercent, errors.ErrorTypeValidation, errors.CodeInvalidPercentage,
			fmt.Sprintf("got %v", p))
	}
	return nil
}

// SuppressionCount is the number of rows Suppress removes from n rows.
func SuppressionCount(n int, p float64) int {
	removed := int(math.Floor(float64(n)*p/100 + 1e-9))
	return lo.Clamp(removed, 0, n)
}

// Suppress removes the p percent of rows with the lowest uniqueness. Ties keep
// their original order and the remaining rows keep their relative order. It
// returns the number of removed rows.
func Suppress(ds *dataset.Dataset, p float64) (*dataset.Dataset, int, error) {
	if err := ValidatePercent(p); err != nil {
		return nil, 0, err
	}
	col, ok := ds.Column(constants.ColumnUniqueness)
	if !ok {
		return nil, 0, errors.NewPreconditionError(errors.CodeMissingUniqueness, errors.ErrMissingUniqueness)
	}

	uniqueness := make([]float64, col.Len())
	for i, v := range col.Values {
		f, ok := v.Float()
		if !ok {
			return nil, 0, errors.NewPreconditionError(errors.CodeMissingUniqueness, errors.ErrMissingUniqueness).
				WithDetails(fmt.Sprintf("row %d has non-numeric uniqueness %q", i+1, v.Text()))
		}
		uniqueness[i] = f
	}

	removed := SuppressionCount(ds.Rows(), p)
	if removed == 0 {
		return ds, 0, nil
	}

	order := lo.Range(ds.Rows())
	sort.SliceStable(order, func(i, j int) bool {
		return uniqueness[order[i]] < uniqueness[order[j]]
	})

	drop := make(map[int]bool, removed)
	for _, r := range order[:removed] {
		drop[r] = true
	}
	keep := lo.Filter(lo.Range(ds.Rows()), func(r int, _ int) bool { return !drop[r] })
	return ds.SelectRows(keep), removed, nil
}
