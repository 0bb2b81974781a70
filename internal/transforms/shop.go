package transforms

import (
	"strings"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/internal/lookup"
	"github.com/inferloop/kanon/pkg/constants"
)

// ShopCategory replaces a shop chain name with the chain's category.
type ShopCategory struct {
	Column string
	Tables *lookup.Tables
}

func (s *ShopCategory) Name() string      { return "shop_category" }
func (s *ShopCategory) Columns() []string { return []string{s.Column} }

func (s *ShopCategory) Apply(ds *dataset.Dataset) (*dataset.Patch, Stats, error) {
	return mapColumn(ds, s.Column, s.Name(), func(v dataset.Value) (dataset.Value, bool) {
		if v.IsNull() {
			return dataset.String(constants.UnknownCategory), false
		}
		category, ok := s.Tables.ShopCategory(strings.TrimSpace(v.Text()))
		if !ok {
			return dataset.String(constants.UnknownCategory), false
		}
		return dataset.String(category), true
	})
}
