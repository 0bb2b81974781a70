package privacy

import (
	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/pkg/errors"
)

// BadGroupOptions selects which small classes to report. A zero Threshold
// disables the size filter and a zero Limit returns every matching class.
type BadGroupOptions struct {
	Threshold int `json:"threshold" mapstructure:"threshold"`
	Limit     int `json:"limit" mapstructure:"limit"`
}

// BadGroup is one reported equivalence class.
type BadGroup struct {
	*EquivalenceClass
	Share float64 `json:"share"`
}

// BadGroups reports the smallest equivalence classes of ds under qi with
// their share of all rows in percent. ds is only read.
func BadGroups(ds *dataset.Dataset, qi []string, opts BadGroupOptions) ([]BadGroup, error) {
	if opts.Threshold < 0 || opts.Limit < 0 {
		return nil, errors.NewValidationError(errors.CodeOutOfRange, "bad group threshold and limit must not be negative")
	}

	classes, err := GroupSizes(ds, qi)
	if err != nil {
		return nil, err
	}

	total := ds.Rows()
	var groups []BadGroup
	for _, class := range SmallestClasses(classes) {
		if class.Size == 0 {
			continue
		}
		if opts.Threshold > 0 && class.Size >= opts.Threshold {
			break
		}
		if opts.Limit > 0 && len(groups) == opts.Limit {
			break
		}
		groups = append(groups, BadGroup{
			EquivalenceClass: class,
			Share:            float64(class.Size) / float64(total) * 100,
		})
	}
	return groups, nil
}
