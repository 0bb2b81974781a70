package privacy

import (
	stderrors "errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

type helper interface {
	require.TestingT
	Helper()
}

func buildDataset(t helper, columns map[string][]string, order ...string) *dataset.Dataset {
	t.Helper()
	cols := make([]*dataset.Column, 0, len(order))
	for _, name := range order {
		values := make([]dataset.Value, len(columns[name]))
		for i, cell := range columns[name] {
			values[i] = dataset.Parse(cell)
		}
		cols = append(cols, dataset.NewColumn(name, values))
	}
	ds, err := dataset.New(cols)
	require.NoError(t, err)
	return ds
}

func categoryDataset(t helper) *dataset.Dataset {
	return buildDataset(t, map[string][]string{
		"id":       {"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
		"category": {"A", "A", "B", "A", "B", "A", "A", "B", "A", "B"},
	}, "id", "category")
}

func TestMeasureScenario(t *testing.T) {
	m, err := Measure(categoryDataset(t), []string{"category"}, MetricQuasiIdentifierKAnonymity)
	require.NoError(t, err)

	assert.Equal(t, MetricQuasiIdentifierKAnonymity, m.Name)
	assert.Equal(t, 4, m.KAnonymity)
	assert.Equal(t, 5.0, m.Mean)
	assert.Equal(t, 5.0, m.Median)
	assert.Equal(t, 2, m.Groups)
	assert.Equal(t, 10, m.Rows)
}

func TestGroupSizesStructuralEquality(t *testing.T) {
	ds := buildDataset(t, map[string][]string{
		"a": {"1", "1.0", "x", "", "x"},
		"b": {"y", "y", "y", "", "y"},
	}, "a", "b")

	classes, err := GroupSizes(ds, []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, classes, 3)
	assert.Equal(t, 2, classes[0].Size, "1 and 1.0 are the same number")
	assert.Equal(t, 2, classes[1].Size)
	assert.Equal(t, 1, classes[2].Size)
}

func TestGroupSizesErrors(t *testing.T) {
	ds := categoryDataset(t)

	_, err := GroupSizes(ds, []string{"missing"})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnknownColumn))

	_, err = GroupSizes(ds, nil)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEmptyQuasiIdentifiers))

	_, err = GroupSizes(ds, []string{constants.ColumnUniqueness})
	assert.True(t, stderrors.Is(err, errors.ErrEmptyQuasiIdentifiers), "uniqueness never counts as a key")
}

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(MetricFullUniqueness, nil)
	assert.Equal(t, Metrics{Name: MetricFullUniqueness}, m)
}

func TestAnnotate(t *testing.T) {
	ds := buildDataset(t, map[string][]string{
		"category": {"A", "A", "B", "A", "B"},
		"brand":    {"*", "*", "*", "*", "*"},
	}, "category", "brand")

	annotated, metrics, err := Annotate(ds)
	require.NoError(t, err)

	col, ok := annotated.Column(constants.ColumnUniqueness)
	require.True(t, ok)
	sizes := make([]float64, col.Len())
	for i, v := range col.Values {
		sizes[i], _ = v.Float()
	}
	assert.Equal(t, []float64{3, 3, 2, 3, 2}, sizes)
	assert.Equal(t, MetricFullUniqueness, metrics.Name)
	assert.Equal(t, 2, metrics.KAnonymity)
	assert.False(t, ds.HasColumn(constants.ColumnUniqueness), "input must not change")

	again, metrics2, err := Annotate(annotated)
	require.NoError(t, err)
	assert.Equal(t, metrics, metrics2, "an existing uniqueness column is not part of the key")
	assert.Equal(t, annotated.ColumnNames(), again.ColumnNames())
}

func TestSuppressRemovesLowestUniqueness(t *testing.T) {
	ds := buildDataset(t, map[string][]string{
		"id":                       {"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"},
		constants.ColumnUniqueness: {"3", "1", "2", "1", "5", "4", "2", "6", "1", "3"},
	}, "id", constants.ColumnUniqueness)

	out, removed, err := Suppress(ds, 50)
	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	assert.Equal(t, 5, out.Rows())

	col, _ := out.Column("id")
	ids := make([]string, col.Len())
	for i, v := range col.Values {
		ids[i] = v.Text()
	}
	assert.Equal(t, []string{"0", "4", "5", "7", "9"}, ids)
}

func TestSuppressTiesKeepOriginalOrder(t *testing.T) {
	ds := buildDataset(t, map[string][]string{
		"id":                       {"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"},
		constants.ColumnUniqueness: {"1", "1", "1", "1", "1", "1", "1", "1", "1", "1"},
	}, "id", constants.ColumnUniqueness)

	out, removed, err := Suppress(ds, 50)
	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	col, _ := out.Column("id")
	assert.Equal(t, "5", col.Values[0].Text())
	assert.Equal(t, "9", col.Values[4].Text())
}

func TestSuppressErrors(t *testing.T) {
	ds := categoryDataset(t)

	_, _, err := Suppress(ds, 10)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrMissingUniqueness))
	assert.True(t, errors.IsType(err, errors.ErrorTypePrecondition))

	annotated, _, err := Annotate(ds)
	require.NoError(t, err)
	for _, p := range []float64{-1, 100.5} {
		_, _, err = Suppress(annotated, p)
		require.Error(t, err, "percent %v", p)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidPercent))
	}
}

func TestSuppressionCount(t *testing.T) {
	tests := []struct {
		n    int
		p    float64
		want int
	}{
		{10, 0, 0},
		{10, 50, 5},
		{10, 100, 10},
		{10, 15, 1},
		{3, 33.3333, 0},
		{7, 100.0 * 3 / 7, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SuppressionCount(tt.n, tt.p), "n=%d p=%v", tt.n, tt.p)
	}
}

func TestBadGroups(t *testing.T) {
	ds := buildDataset(t, map[string][]string{
		"category": {"A", "A", "A", "A", "A", "A", "B", "B", "B", "C"},
	}, "category")

	tests := []struct {
		name string
		opts BadGroupOptions
		want []string
	}{
		{"threshold", BadGroupOptions{Threshold: 4}, []string{"C", "B"}},
		{"limit", BadGroupOptions{Limit: 1}, []string{"C"}},
		{"threshold and limit", BadGroupOptions{Threshold: 10, Limit: 2}, []string{"C", "B"}},
		{"everything", BadGroupOptions{}, []string{"C", "B", "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := BadGroups(ds, []string{"category"}, tt.opts)
			require.NoError(t, err)
			labels := make([]string, len(groups))
			for i, g := range groups {
				labels[i] = g.Label()
			}
			assert.Equal(t, tt.want, labels)
		})
	}

	groups, err := BadGroups(ds, []string{"category"}, BadGroupOptions{Limit: 1})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, groups[0].Share, 1e-9)

	_, err = BadGroups(ds, []string{"category"}, BadGroupOptions{Limit: -1})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestResolveQuasiIdentifiers(t *testing.T) {
	columns := []string{"shop_name", "datetime", "category"}

	got, err := ResolveQuasiIdentifiers(columns, []string{"1", " category ", "shop_name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_name", "category"}, got)

	_, err = ResolveQuasiIdentifiers(columns, []string{"4"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = ResolveQuasiIdentifiers(columns, []string{"price"})
	assert.True(t, stderrors.Is(err, errors.ErrUnknownColumn))
}

func TestEffectiveQuasiIdentifiers(t *testing.T) {
	renames := map[string]string{
		"longitude": "distance_band",
		"latitude":  "distance_band",
	}
	columns := []string{"shop_name", "distance_band", "category"}

	got := EffectiveQuasiIdentifiers([]string{"longitude", "latitude", "category", "gone", constants.ColumnUniqueness}, renames, columns)
	assert.Equal(t, []string{"distance_band", "category"}, got)

	assert.Empty(t, EffectiveQuasiIdentifiers([]string{"gone"}, renames, columns))
}

func TestClassSizesSumToRows(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(0, 60).Draw(t, "rows")
		a := make([]string, rows)
		b := make([]string, rows)
		for i := 0; i < rows; i++ {
			a[i] = rapid.SampledFrom([]string{"x", "y", "z", "", "1", "1.0"}).Draw(t, "a")
			b[i] = rapid.SampledFrom([]string{"p", "q"}).Draw(t, "b")
		}
		ds := buildDataset(t, map[string][]string{"a": a, "b": b}, "a", "b")

		classes, err := GroupSizes(ds, []string{"a", "b"})
		if err != nil {
			t.Fatalf("group: %v", err)
		}
		total := 0
		for _, c := range classes {
			total += c.Size
		}
		if total != rows {
			t.Fatalf("class sizes sum to %d, want %d", total, rows)
		}
	})
}

func TestSuppressionDoesNotLowerKAnonymity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sizes := rapid.SliceOfN(rapid.IntRange(1, 6), 2, 8).Draw(t, "sizes")

		var labels []string
		for i, size := range sizes {
			for j := 0; j < size; j++ {
				labels = append(labels, fmt.Sprintf("c%d", i))
			}
		}
		ds := buildDataset(t, map[string][]string{"qi": labels}, "qi")

		annotated, before, err := Annotate(ds)
		if err != nil {
			t.Fatalf("annotate: %v", err)
		}

		// Remove a number of whole smallest classes.
		whole := rapid.IntRange(0, len(sizes)-1).Draw(t, "whole")
		sorted := append([]int(nil), sizes...)
		sort.Ints(sorted)
		removed := 0
		for _, s := range sorted[:whole] {
			removed += s
		}
		p := float64(removed) * 100 / float64(len(labels))

		suppressed, n, err := Suppress(annotated, p)
		if err != nil {
			t.Fatalf("suppress: %v", err)
		}
		if n != removed {
			t.Fatalf("removed %d rows, want %d", n, removed)
		}

		_, after, err := Annotate(suppressed.WithoutColumns(constants.ColumnUniqueness))
		if err != nil {
			t.Fatalf("re-annotate: %v", err)
		}
		if after.KAnonymity < before.KAnonymity {
			t.Fatalf("k-anonymity dropped from %d to %d", before.KAnonymity, after.KAnonymity)
		}
	})
}
