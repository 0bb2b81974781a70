// Package lookup holds the read-only tables the engine consults while
// generalizing: shop chain → shop category and card BIN → payment brand.
package lookup

import (
	"context"

	"github.com/inferloop/kanon/pkg/errors"
)

// Tables is loaded once per run and never modified afterwards.
type Tables struct {
	ShopCategories map[string]string
	BINBrands      map[string]string
}

// Provider loads lookup tables from a configuration source.
type Provider interface {
	Load(ctx context.Context) (*Tables, error)
}

// NewTables copies the given maps into a new Tables value.
func NewTables(shopCategories, binBrands map[string]string) *Tables {
	t := &Tables{
		ShopCategories: make(map[string]string, len(shopCategories)),
		BINBrands:      make(map[string]string, len(binBrands)),
	}
	for k, v := range shopCategories {
		t.ShopCategories[k] = v
	}
	for k, v := range binBrands {
		t.BINBrands[k] = v
	}
	return t
}

// ShopCategory looks up the category of a shop chain.
func (t *Tables) ShopCategory(shop string) (string, bool) {
	c, ok := t.ShopCategories[shop]
	return c, ok
}

// PaymentBrand looks up the payment brand of a 6-digit BIN.
func (t *Tables) PaymentBrand(bin string) (string, bool) {
	b, ok := t.BINBrands[bin]
	return b, ok
}

// Validate fails when either table is absent.
func (t *Tables) Validate() error {
	if t == nil {
		return errors.WrapError(errors.ErrLookupTableMissing, errors.ErrorTypeConfiguration, errors.CodeLookupMissing, "lookup tables not loaded")
	}
	if len(t.ShopCategories) == 0 {
		return errors.WrapError(errors.ErrLookupTableMissing, errors.ErrorTypeConfiguration, errors.CodeLookupMissing, "shop category table is empty")
	}
	if len(t.BINBrands) == 0 {
		return errors.WrapError(errors.ErrLookupTableMissing, errors.ErrorTypeConfiguration, errors.CodeLookupMissing, "BIN table is empty")
	}
	return nil
}
