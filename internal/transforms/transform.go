// Package transforms implements the per-column generalization and suppression
// steps. Every transform reads an immutable dataset snapshot and returns a
// patch; none of them modifies its input, so transforms over disjoint columns
// can run concurrently against the same snapshot.
package transforms

import (
	"fmt"

	"github.com/inferloop/kanon/internal/dataset"
	"github.com/inferloop/kanon/pkg/errors"
)

// Transform is a single column generalization step.
type Transform interface {
	// Name identifies the transform in logs and metrics.
	Name() string
	// Columns lists the columns the transform requires.
	Columns() []string
	// Apply computes the patch for ds.
	Apply(ds *dataset.Dataset) (*dataset.Patch, Stats, error)
}

// Stats summarizes one transform run. Unknown counts values that were
// replaced by a sentinel because they could not be interpreted.
type Stats struct {
	Transform string `json:"transform"`
	Column    string `json:"column"`
	Processed int    `json:"processed"`
	Unknown   int    `json:"unknown"`
	Skipped   bool   `json:"skipped,omitempty"`
}

func requireColumn(ds *dataset.Dataset, name string) (*dataset.Column, error) {
	col, ok := ds.Column(name)
	if !ok {
		return nil, errors.NewPreconditionError(errors.CodeUnknownColumn, errors.ErrUnknownColumn).
			WithDetails(fmt.Sprintf("column %q not found", name))
	}
	return col, nil
}

// mapColumn replaces every value of a column using fn. fn reports false when
// it had to fall back to a sentinel.
func mapColumn(ds *dataset.Dataset, name string, transform string, fn func(dataset.Value) (dataset.Value, bool)) (*dataset.Patch, Stats, error) {
	stats := Stats{Transform: transform, Column: name}

	col, err := requireColumn(ds, name)
	if err != nil {
		return nil, stats, err
	}

	values := make([]dataset.Value, col.Len())
	for i, v := range col.Values {
		out, ok := fn(v)
		if !ok {
			stats.Unknown++
		}
		values[i] = out
	}
	stats.Processed = len(values)

	patch := dataset.NewPatch()
	patch.Replace[name] = dataset.NewColumn(name, values)
	return patch, stats, nil
}
