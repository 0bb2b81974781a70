package privacy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/inferloop/kanon/pkg/constants"
	"github.com/inferloop/kanon/pkg/errors"
)

// ResolveQuasiIdentifiers turns selectors into column names. A selector is
// either a 1-based column index or a column name.
func ResolveQuasiIdentifiers(columns []string, selectors []string) ([]string, error) {
	var resolved []string
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		if idx, err := strconv.Atoi(sel); err == nil {
			if idx < 1 || idx > len(columns) {
				return nil, errors.NewValidationError(errors.CodeOutOfRange,
					fmt.Sprintf("column index %d out of range 1..%d", idx, len(columns)))
			}
			resolved = append(resolved, columns[idx-1])
			continue
		}
		if !lo.Contains(columns, sel) {
			return nil, errors.NewPreconditionError(errors.CodeUnknownColumn, errors.ErrUnknownColumn).
				WithDetails(fmt.Sprintf("column %q not found", sel))
		}
		resolved = append(resolved, sel)
	}
	return lo.Uniq(resolved), nil
}

// EffectiveQuasiIdentifiers maps the configured quasi-identifiers onto the
// columns that exist after generalization. Columns a transform folded into
// another follow renames; columns that disappeared without a successor are
// dropped.
func EffectiveQuasiIdentifiers(qi []string, renames map[string]string, columns []string) []string {
	out := make([]string, 0, len(qi))
	for _, name := range qi {
		for hops := 0; hops <= len(renames); hops++ {
			next, ok := renames[name]
			if !ok || next == name {
				break
			}
			name = next
		}
		if name == constants.ColumnUniqueness || !lo.Contains(columns, name) {
			continue
		}
		out = append(out, name)
	}
	return lo.Uniq(out)
}
