package privacy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/inferloop/kanon/internal/dataset"
	kmath "github.com/inferloop/kanon/internal/utils/math"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// Names of the two k-anonymity figures a run reports.
const (
	MetricFullUniqueness            = "full_uniqueness"
	MetricQuasiIdentifierKAnonymity = "quasi_identifier_k_anonymity"
)

// EquivalenceClass is a set of rows sharing identical quasi-identifier values.
type EquivalenceClass struct {
	Values []dataset.Value `json:"values"`
	Key    string          `json:"-"`
	Size   int             `json:"size"`
}

// Label renders the class values for humans.
func (c *EquivalenceClass) Label() string {
	parts := lo.Map(c.Values, func(v dataset.Value, _ int) string { return v.String() })
	return strings.Join(parts, " | ")
}

// Metrics summarizes the class size distribution of a dataset.
type Metrics struct {
	Name       string  `json:"name"`
	KAnonymity int     `json:"k_anonymity"`
	Mean       float64 `json:"mean"`
	Median     float64 `json:"median"`
	Groups     int     `json:"groups"`
	Rows       int     `json:"rows"`
}

func (m Metrics) String() string {
	return fmt.Sprintf("%s: k=%d mean=%.2f median=%.2f groups=%d rows=%d",
		m.Name, m.KAnonymity, m.Mean, m.Median, m.Groups, m.Rows)
}

// groupingColumns resolves the key columns, never including the uniqueness
// annotation.
func groupingColumns(ds *dataset.Dataset, qi []string) ([]*dataset.Column, error) {
	names := lo.Without(lo.Uniq(qi), constants.ColumnUniqueness)
	if len(names) == 0 {
		return nil, errors.NewPreconditionError(errors.CodeEmptyQuasiIdent, errors.ErrEmptyQuasiIdentifiers)
	}

	columns := make([]*dataset.Column, len(names))
	for i, name := range names {
		col, ok := ds.Column(name)
		if !ok {
			return nil, errors.NewPreconditionError(errors.CodeUnknownColumn, errors.ErrUnknownColumn).
				WithDetails(fmt.Sprintf("quasi-identifier %q not found", name))
		}
		columns[i] = col
	}
	return columns, nil
}

// rowKeys returns the grouping key of every row.
func rowKeys(ds *dataset.Dataset, columns []*dataset.Column) []string {
	keys := make([]string, ds.Rows())
	for r := range keys {
		keys[r] = dataset.Key(ds.Tuple(r, columns))
	}
	return keys
}

// GroupSizes partitions the rows of ds by their values in the qi columns.
// Classes are returned in order of first appearance.
func GroupSizes(ds *dataset.Dataset, qi []string) ([]*EquivalenceClass, error) {
	columns, err := groupingColumns(ds, qi)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*EquivalenceClass)
	var classes []*EquivalenceClass
	for r, key := range rowKeys(ds, columns) {
		if class, ok := index[key]; ok {
			class.Size++
			continue
		}
		class := &EquivalenceClass{Values: ds.Tuple(r, columns), Key: key, Size: 1}
		index[key] = class
		classes = append(classes, class)
	}
	return classes, nil
}

// ComputeMetrics derives k-anonymity, mean and median class size. The mean is
// rows divided by the number of classes.
func ComputeMetrics(name string, classes []*EquivalenceClass) Metrics {
	m := Metrics{Name: name, Groups: len(classes)}
	if len(classes) == 0 {
		return m
	}

	sizes := make([]float64, len(classes))
	for i, c := range classes {
		sizes[i] = float64(c.Size)
		m.Rows += c.Size
	}
	m.KAnonymity = int(kmath.Min(sizes))
	m.Mean = float64(m.Rows) / float64(m.Groups)
	m.Median = kmath.Median(sizes)
	return m
}

// Measure groups ds by qi and summarizes the result under name.
func Measure(ds *dataset.Dataset, qi []string, name string) (Metrics, error) {
	classes, err := GroupSizes(ds, qi)
	if err != nil {
		return Metrics{Name: name}, err
	}
	return ComputeMetrics(name, classes), nil
}

// SmallestClasses returns classes ordered ascending by size, ties broken by
// their label and then by key.
func SmallestClasses(classes []*EquivalenceClass) []*EquivalenceClass {
	sorted := make([]*EquivalenceClass, len(classes))
	copy(sorted, classes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Size != sorted[j].Size {
			return sorted[i].Size < sorted[j].Size
		}
		if li, lj := sorted[i].Label(), sorted[j].Label(); li != lj {
			return li < lj
		}
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}
