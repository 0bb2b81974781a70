package dataset

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inferloop/kanon/pkg/errors"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		cell string
		kind Kind
		text string
	}{
		{"", KindNull, ""},
		{"   ", KindNull, ""},
		{"12.5", KindNumber, "12.5"},
		{"2200701234567890", KindNumber, "2200701234567890"},
		{"Pyaterochka", KindString, "Pyaterochka"},
		{"NaN", KindString, "NaN"},
		{"2023-01-05 10:00", KindString, "2023-01-05 10:00"},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			v := Parse(tt.cell)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.text, v.Text())
		})
	}
}

func TestValueFloatCoercion(t *testing.T) {
	f, ok := String(" 42 ").Float()
	assert.True(t, ok)
	assert.Equal(t, 42.0, f)

	_, ok = String("abc").Float()
	assert.False(t, ok)

	_, ok = Null().Float()
	assert.False(t, ok)
}

func TestKeyStructuralEquality(t *testing.T) {
	assert.Equal(t, Key([]Value{Number(5), String("a")}), Key([]Value{Parse("5.0"), String("a")}))
	assert.NotEqual(t, Key([]Value{String("5")}), Key([]Value{Number(5)}))
	assert.NotEqual(t, Key([]Value{String("ab"), String("c")}), Key([]Value{String("a"), String("bc")}))
	assert.NotEqual(t, Key([]Value{Null()}), Key([]Value{String("")}))
}

func TestNewRejectsRaggedColumns(t *testing.T) {
	_, err := New([]*Column{
		NewColumn("a", []Value{String("x"), String("y")}),
		NewColumn("b", []Value{String("x")}),
	})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrRaggedRecord))
}

func TestApplyPatch(t *testing.T) {
	ds, err := FromRows([]string{"lon", "lat", "name"}, [][]Value{
		{Number(1), Number(2), String("a")},
		{Number(3), Number(4), String("b")},
	})
	require.NoError(t, err)

	patch := NewPatch()
	patch.Replace["lon"] = NewColumn("band", []Value{String("near"), String("far")})
	patch.Drop = []string{"lat"}
	patch.Renames["lon"] = "band"
	patch.Renames["lat"] = "band"

	out, err := ds.Apply(patch)
	require.NoError(t, err)
	assert.Equal(t, []string{"band", "name"}, out.ColumnNames())
	assert.Equal(t, []string{"lon", "lat", "name"}, ds.ColumnNames(), "source snapshot must be unchanged")

	rec := out.Record(1)
	v, ok := rec.Get("band")
	require.True(t, ok)
	assert.Equal(t, "far", v.Text())
}

func TestMergePatchesRejectsOverlap(t *testing.T) {
	a := NewPatch()
	a.Replace["x"] = NewColumn("x", nil)
	b := NewPatch()
	b.Drop = []string{"x"}

	_, err := MergePatches(a, b)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestSelectRows(t *testing.T) {
	ds, err := FromRows([]string{"n"}, [][]Value{{Number(0)}, {Number(1)}, {Number(2)}})
	require.NoError(t, err)

	out := ds.SelectRows([]int{2, 0})
	require.Equal(t, 2, out.Rows())
	col, _ := out.Column("n")
	assert.Equal(t, "2", col.Values[0].Text())
	assert.Equal(t, "0", col.Values[1].Text())
}

func TestCSVRoundTrip(t *testing.T) {
	input := "shop,price,card\nLenta,120.5,2200701234567890\nDiksi,,4276\n"
	ds, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HeaderAliases: map[string]string{"shop": "shop_name"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"shop_name", "price", "card"}, ds.ColumnNames())
	assert.Equal(t, 2, ds.Rows())

	price, _ := ds.Column("price")
	assert.True(t, price.Values[1].IsNull())

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(context.Background(), &buf, ds, CSVOptions{}))
	assert.Equal(t, "shop_name,price,card\nLenta,120.5,2200701234567890\nDiksi,,4276\n", buf.String())
}

func TestReadCSVEmpty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader("a,b\n"), CSVOptions{})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrEmptyDataset))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestReadCSVSemicolon(t *testing.T) {
	ds, err := ReadCSV(context.Background(), strings.NewReader("a;b\n1;x\n"), CSVOptions{Delimiter: ";"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.ColumnNames())
}

func TestStoreLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	require.NoError(t, os.WriteFile(in, []byte("a,b\n1,x\n2,y\n"), 0644))

	store := NewStore(CSVOptions{}, nil, logrus.New())
	ds, err := store.Load(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Rows())

	out := filepath.Join(dir, "nested", "out.csv")
	require.NoError(t, store.Save(context.Background(), out, ds))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,x\n2,y\n", string(data))
}

func TestStoreMissingFile(t *testing.T) {
	store := NewStore(CSVOptions{}, nil, logrus.New())
	_, err := store.Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrInputNotFound))
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestStoreRejectsS3WithoutConfig(t *testing.T) {
	store := NewStore(CSVOptions{}, nil, logrus.New())
	_, err := store.Load(context.Background(), "s3://bucket/data.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3 is not configured")
}
