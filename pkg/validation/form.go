// Package validation provides loan form and configuration validation utilities.
//
// The calculator in pkg/loans rejects inputs that are mathematically out of
// domain. The checks here are softer: they mirror what the loan form allows
// and are reported as warnings next to a computed result.
package validation

import (
	"fmt"

	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/format"
	"github.com/iwvelando/loan-affordability/pkg/loans"
)

// Limits bounds the loan amount and term accepted by the loan form.
type Limits struct {
	MinAmount     float64 `yaml:"minAmount,omitempty" mapstructure:"minAmount"`
	MaxAmount     float64 `yaml:"maxAmount,omitempty" mapstructure:"maxAmount"`
	MinTermMonths int     `yaml:"minTermMonths,omitempty" mapstructure:"minTermMonths"`
	MaxTermMonths int     `yaml:"maxTermMonths,omitempty" mapstructure:"maxTermMonths"`
}

// DefaultLimits returns the loan form's built-in bounds.
func DefaultLimits() Limits {
	return Limits{
		MinAmount:     constants.DefaultMinAmount,
		MaxAmount:     constants.DefaultMaxAmount,
		MinTermMonths: constants.DefaultMinTermMonths,
		MaxTermMonths: constants.DefaultMaxTermMonths,
	}
}

// WithDefaults fills unset bounds from DefaultLimits.
func (l Limits) WithDefaults() Limits {
	defaults := DefaultLimits()
	if l.MinAmount == 0 {
		l.MinAmount = defaults.MinAmount
	}
	if l.MaxAmount == 0 {
		l.MaxAmount = defaults.MaxAmount
	}
	if l.MinTermMonths == 0 {
		l.MinTermMonths = defaults.MinTermMonths
	}
	if l.MaxTermMonths == 0 {
		l.MaxTermMonths = defaults.MaxTermMonths
	}
	return l
}

// Validate checks that the bounds are usable.
func (l Limits) Validate() error {
	if l.MinAmount <= 0 || l.MaxAmount < l.MinAmount {
		return fmt.Errorf("invalid amount limits: min %v, max %v", l.MinAmount, l.MaxAmount)
	}
	if l.MinTermMonths < 1 || l.MaxTermMonths < l.MinTermMonths {
		return fmt.Errorf("invalid term limits: min %d, max %d", l.MinTermMonths, l.MaxTermMonths)
	}
	return nil
}

// ValidateForm returns the loan form's field messages for the given input.
// An empty result means the form would accept it.
func ValidateForm(terms loans.LoanTerms, profile loans.BorrowerProfile, limits Limits) []string {
	var warnings []string
	code := constants.DefaultCurrency

	if terms.Amount < limits.MinAmount || terms.Amount > limits.MaxAmount {
		warnings = append(warnings, fmt.Sprintf("amount must be between %s and %s",
			format.Currency(limits.MinAmount, code, constants.DefaultCurrencyPlaces),
			format.Currency(limits.MaxAmount, code, constants.DefaultCurrencyPlaces)))
	}

	if terms.TermMonths < limits.MinTermMonths || terms.TermMonths > limits.MaxTermMonths {
		warnings = append(warnings, fmt.Sprintf("term must be between %d and %d months",
			limits.MinTermMonths, limits.MaxTermMonths))
	}

	if profile.MonthlyIncome <= 0 {
		warnings = append(warnings, "monthly income is not set")
	} else if profile.MonthlyExpenses >= profile.MonthlyIncome {
		warnings = append(warnings, fmt.Sprintf("monthly expenses (%s) are not below monthly income (%s); debt burden is reported as fully saturated",
			format.Currency(profile.MonthlyExpenses, code, constants.DefaultCurrencyPlaces),
			format.Currency(profile.MonthlyIncome, code, constants.DefaultCurrencyPlaces)))
	}

	return warnings
}

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(outputFormat string) error {
	if outputFormat != constants.OutputFormatPretty && outputFormat != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, outputFormat)
	}
	return nil
}
