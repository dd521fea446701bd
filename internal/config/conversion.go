package config

import (
	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/loans"
)

// LoanTerms converts the application into calculator terms. The application's
// rate wins over the shared default.
func (a Application) LoanTerms(defaults Defaults) loans.LoanTerms {
	return loans.LoanTerms{
		Amount:     a.Amount,
		TermMonths: a.TermMonths,
		AnnualRate: a.EffectiveRate(defaults),
	}
}

// BorrowerProfile converts the application's income and obligations.
func (a Application) BorrowerProfile() loans.BorrowerProfile {
	return loans.BorrowerProfile{
		MonthlyIncome:              a.MonthlyIncome,
		MonthlyExpenses:            a.MonthlyExpenses,
		ExistingMonthlyObligations: a.ExistingMonthlyObligations,
	}
}

// EffectiveRate returns the annual rate used for the application.
func (a Application) EffectiveRate(defaults Defaults) float64 {
	if a.AnnualRate != nil {
		return *a.AnnualRate
	}
	if defaults.AnnualRate != nil {
		return *defaults.AnnualRate
	}
	return constants.DefaultAnnualRate
}

// EffectiveStartDate returns the schedule start date, falling back to the default.
func (a Application) EffectiveStartDate(defaults Defaults) string {
	if a.StartDate != "" {
		return a.StartDate
	}
	return defaults.StartDate
}

// Places returns the number of minor-unit digits used for display.
func (d Defaults) Places() int32 {
	if d.CurrencyPlaces == nil {
		return constants.DefaultCurrencyPlaces
	}
	return *d.CurrencyPlaces
}

// CurrencyCode returns the display currency code.
func (d Defaults) CurrencyCode() string {
	if d.Currency == "" {
		return constants.DefaultCurrency
	}
	return d.Currency
}
