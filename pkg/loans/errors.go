package loans

import (
	"errors"
	"fmt"

	"github.com/iwvelando/loan-affordability/pkg/mathutil"
)

// ErrInvalidArgument is wrapped by every error returned when an input falls
// outside the documented domain of an operation.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidArgument(field string, value interface{}, constraint string) error {
	return fmt.Errorf("%w: %s must be %s, got %v", ErrInvalidArgument, field, constraint, value)
}

func requirePositive(field string, value float64) error {
	if !mathutil.IsFinite(value) || value <= 0 {
		return invalidArgument(field, value, "a positive finite number")
	}
	return nil
}

func requireNonNegative(field string, value float64) error {
	if !mathutil.IsFinite(value) || value < 0 {
		return invalidArgument(field, value, "a non-negative finite number")
	}
	return nil
}

func requireTerm(termMonths int) error {
	if termMonths < 1 {
		return invalidArgument("termMonths", termMonths, "at least 1")
	}
	return nil
}
