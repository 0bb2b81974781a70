package transforms

import (
	"strings"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/internal/lookup"
	"github.com/inferloop/kanon/pkg/constants"
)

// CardBrand replaces a card number with the payment brand of its BIN.
type CardBrand struct {
	Column string
	Tables *lookup.Tables
}

func (c *CardBrand) Name() string      { return "card_brand" }
func (c *CardBrand) Columns() []string { return []string{c.Column} }

func (c *CardBrand) Apply(ds *dataset.Dataset) (*dataset.Patch, Stats, error) {
	return mapColumn(ds, c.Column, c.Name(), func(v dataset.Value) (dataset.Value, bool) {
		unknown := dataset.String(constants.UnknownValue)

		digits := strings.TrimSpace(v.Text())
		if v.IsNull() || len(digits) < constants.BINPrefixLength || !allDigits(digits) {
			return unknown, false
		}
		brand, ok := c.Tables.PaymentBrand(digits[:constants.BINPrefixLength])
		if !ok {
			return unknown, false
		}
		return dataset.String(brand), true
	})
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
