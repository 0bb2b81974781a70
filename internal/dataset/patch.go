package dataset

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/inferloop/kanon/pkg/errors"
)

// Patch describes the column changes produced by one transform. Replace is
// keyed by the name of the column being replaced; the replacement keeps that
// column's position and may carry a new name.
type Patch struct {
	Replace map[string]*Column
	Drop    []string
	Append  []*Column
	// Renames maps a removed or renamed column to the column that now carries
	// its (coarsened) information.
	Renames map[string]string
}

// NewPatch creates an empty patch.
func NewPatch() *Patch {
	return &Patch{
		Replace: make(map[string]*Column),
		Renames: make(map[string]string),
	}
}

// Empty reports whether the patch changes nothing.
func (p *Patch) Empty() bool {
	return len(p.Replace) == 0 && len(p.Drop) == 0 && len(p.Append) == 0
}

// Touched returns every column name the patch reads or writes.
func (p *Patch) Touched() []string {
	names := append(lo.Keys(p.Replace), p.Drop...)
	for _, col := range p.Append {
		names = append(names, col.Name)
	}
	return lo.Uniq(names)
}

// MergePatches combines patches computed against the same snapshot. Two
// patches touching the same column is an internal error.
func MergePatches(patches ...*Patch) (*Patch, error) {
	merged := NewPatch()
	owner := make(map[string]int)
	for i, p := range patches {
		if p == nil {
			continue
		}
		for _, name := range p.Touched() {
			if prev, ok := owner[name]; ok && prev != i {
				return nil, errors.NewAppError(errors.ErrorTypeInternal, errors.CodeInternalError,
					fmt.Sprintf("column %q modified by two concurrent transforms", name))
			}
			owner[name] = i
		}
		for name, col := range p.Replace {
			merged.Replace[name] = col
		}
		merged.Drop = append(merged.Drop, p.Drop...)
		merged.Append = append(merged.Append, p.Append...)
		for from, to := range p.Renames {
			merged.Renames[from] = to
		}
	}
	return merged, nil
}
