package transforms

import (
	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/pkg/constants"
)

// Mask replaces every value of a column with a fixed token.
type Mask struct {
	Column string
	Token  string
}

// NewMask creates a mask transform using the default token.
func NewMask(column string) *Mask {
	return &Mask{Column: column, Token: constants.MaskToken}
}

func (m *Mask) Name() string      { return "mask" }
func (m *Mask) Columns() []string { return []string{m.Column} }

func (m *Mask) Apply(ds *dataset.Dataset) (*dataset.Patch, Stats, error) {
	token := dataset.String(m.Token)
	return mapColumn(ds, m.Column, m.Name(), func(dataset.Value) (dataset.Value, bool) {
		return token, true
	})
}
