package pipeline

import (
	"fmt"

	"github.com/inferloop/kanon/pkg/errors"
)

// State is a step of the anonymization run. Runs move strictly forward.
type State int

const (
	StateLoaded State = iota
	StateColumnsGeneralized
	StateAnnotated
	StateSuppressed
	StateReported
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateColumnsGeneralized:
		return "columns_generalized"
	case StateAnnotated:
		return "annotated"
	case StateSuppressed:
		return "suppressed"
	case StateReported:
		return "reported"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transition returns next when it directly follows s.
func (s State) transition(next State) (State, error) {
	if next != s+1 {
		return s, errors.NewAppError(errors.ErrorTypeInternal, errors.CodeInternalError,
			fmt.Sprintf("invalid state transition %s -> %s", s, next))
	}
	return next, nil
}
