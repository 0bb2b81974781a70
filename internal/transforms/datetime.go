package transforms

import (
	"fmt"
	"strings"
	"time"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/pkg/constants"
)

var datetimeLayouts = []string{
	constants.DefaultDatetimeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// Season names the quarter of the year a month falls into.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}

// ParseDatetime accepts the generator's "YYYY-MM-DD HH:MM" format and a few
// common variants.
func ParseDatetime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DatetimeSeason coarsens a timestamp to "<year> <season>".
type DatetimeSeason struct {
	Column string
}

func (d *DatetimeSeason) Name() string      { return "datetime_season" }
func (d *DatetimeSeason) Columns() []string { return []string{d.Column} }

func (d *DatetimeSeason) Apply(ds *dataset.Dataset) (*dataset.Patch, Stats, error) {
	return mapColumn(ds, d.Column, d.Name(), func(v dataset.Value) (dataset.Value, bool) {
		t, ok := ParseDatetime(v.Text())
		if v.IsNull() || !ok {
			return dataset.String(constants.UnknownValue), false
		}
		return dataset.String(fmt.Sprintf("%d %s", t.Year(), Season(t.Month()))), true
	})
}
