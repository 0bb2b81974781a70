package pipeline

import (
	"time"

	"github.com/samber/lo"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/internal/privacy"
	"github.com/inferloop/kanon/internal/transforms"
)

// Result describes one anonymization run.
type Result struct {
	RunID                     string             `json:"run_id"`
	State                     State              `json:"state"`
	Input                     *dataset.Dataset   `json:"-"`
	Output                    *dataset.Dataset   `json:"-"`
	QuasiIdentifiers          []string           `json:"quasi_identifiers"`
	Transforms                []transforms.Stats `json:"transforms"`
	FullUniqueness            privacy.Metrics    `json:"full_uniqueness"`
	QuasiIdentifierKAnonymity privacy.Metrics    `json:"quasi_identifier_k_anonymity"`
	Suppressed                int                `json:"suppressed"`
	BadGroups                 []privacy.BadGroup `json:"bad_groups"`
	Utility                   Utility            `json:"utility"`
	Duration                  time.Duration      `json:"duration"`
}

// UnknownValues sums the sentinel replacements over every transform.
func (r *Result) UnknownValues() int {
	return lo.SumBy(r.Transforms, func(s transforms.Stats) int { return s.Unknown })
}

// Utility compares the anonymized dataset with its source.
type Utility struct {
	RowsIn         int      `json:"rows_in"`
	RowsOut        int      `json:"rows_out"`
	RowsSuppressed int      `json:"rows_suppressed"`
	RetainedShare  float64  `json:"retained_share"`
	ChangedColumns []string `json:"changed_columns"`
	DroppedColumns []string `json:"dropped_columns"`
	AddedColumns   []string `json:"added_columns"`
	Identical      bool     `json:"identical"`
}

// AssessUtility reports what anonymization cost: suppressed rows and the
// columns whose values no longer match the source.
func AssessUtility(original, anonymized *dataset.Dataset, suppressed int) Utility {
	before, after := original.ColumnNames(), anonymized.ColumnNames()
	u := Utility{
		RowsIn:         original.Rows(),
		RowsOut:        anonymized.Rows(),
		RowsSuppressed: suppressed,
		DroppedColumns: lo.Without(before, after...),
		AddedColumns:   lo.Without(after, before...),
	}
	if u.RowsIn > 0 {
		u.RetainedShare = float64(u.RowsOut) / float64(u.RowsIn) * 100
	}

	for _, name := range lo.Intersect(before, after) {
		if columnChanged(original, anonymized, name) {
			u.ChangedColumns = append(u.ChangedColumns, name)
		}
	}

	u.Identical = u.RowsIn == u.RowsOut && len(u.ChangedColumns) == 0 &&
		len(u.DroppedColumns) == 0 && len(u.AddedColumns) == 0
	return u
}

// columnChanged compares row by row when no rows were removed. Otherwise a
// column counts as changed when it holds a value absent from the source.
func columnChanged(a, b *dataset.Dataset, name string) bool {
	ca, _ := a.Column(name)
	cb, _ := b.Column(name)
	if ca.Len() == cb.Len() {
		for i := range ca.Values {
			if !ca.Values[i].Equal(cb.Values[i]) {
				return true
			}
		}
		return false
	}

	source := make(map[string]struct{}, ca.Len())
	for _, v := range ca.Values {
		source[dataset.Key([]dataset.Value{v})] = struct{}{}
	}
	for _, v := range cb.Values {
		if _, ok := source[dataset.Key([]dataset.Value{v})]; !ok {
			return true
		}
	}
	return false
}
