// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/loan-affordability/pkg/constants"
)

const (
	// DateTimeLayout is the format expected in config files and is also the output
	// date format.
	DateTimeLayout = constants.DateTimeLayout
)

// ValidateDate checks that date parses with DateTimeLayout.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateTimeLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, expected format YYYY-MM: %w", date, err)
	}
	return nil
}

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}

// MaturityDate returns the month of the last installment for a loan whose
// first installment falls on startDate.
func MaturityDate(startDate string, termMonths int) (string, error) {
	if termMonths < 1 {
		return "", fmt.Errorf("term must be at least one month, got %d", termMonths)
	}
	return OffsetDate(startDate, DateTimeLayout, termMonths-1)
}
