// Package loans implements the loan affordability calculator: annuity
// payments, repayment totals and the debt burden (PDN) classification.
//
// Every function in this package is pure. Amounts are carried at full
// float64 precision; rounding to a currency's minor unit is left to the
// presentation layer (see pkg/format).
package loans

import (
	"math"

	"github.com/iwvelando/loan-affordability/pkg/constants"
)

// roundingEpsilon is the relative error tolerated before a shortfall in the
// total repayment is treated as real rather than float residue.
const roundingEpsilon = 1e-12

// Totals holds the aggregate repayment figures for a loan.
type Totals struct {
	TotalPayment  float64 `json:"totalPayment"`
	TotalInterest float64 `json:"totalInterest"`
	// EffectiveRate is TotalInterest / Amount, a simple markup ratio and not an APR.
	EffectiveRate float64 `json:"effectiveRate"`
}

// MonthlyRate converts an annual rate fraction into the periodic monthly rate.
func MonthlyRate(annualRate float64) float64 {
	return annualRate / constants.MonthsPerYear
}

// CalculateMonthlyPayment calculates the monthly payment for a loan using the
// standard annuity formula. annualRate is a fraction, e.g. 0.28 for 28%.
func CalculateMonthlyPayment(amount float64, termMonths int, annualRate float64) (float64, error) {
	if err := validateTerms(amount, termMonths, annualRate); err != nil {
		return 0, err
	}
	return monthlyPayment(amount, termMonths, annualRate), nil
}

func monthlyPayment(amount float64, termMonths int, annualRate float64) float64 {
	r := MonthlyRate(annualRate)
	if r == 0 {
		// (1+r)^n - 1 is zero here, so the general formula would divide by zero.
		return amount / float64(termMonths)
	}

	// growth is (1+r)^n - 1, computed without cancellation for small r.
	growth := math.Expm1(float64(termMonths) * math.Log1p(r))
	switch {
	case growth == 0:
		return amount / float64(termMonths)
	case math.IsInf(growth, 1):
		// Limit of the annuity as n*r grows without bound: interest only.
		return amount * r
	}
	// r/growth stays near 1/n, so scaling amount by it last avoids underflow.
	return amount * (r / growth) * (growth + 1)
}

// CalculateInterestPayment calculates the interest portion of a payment.
func CalculateInterestPayment(remainingPrincipal, annualRate float64) float64 {
	return remainingPrincipal * MonthlyRate(annualRate)
}

// Aggregate derives the total repayment, the overpayment and the effective
// markup rate from a monthly payment.
func Aggregate(amount float64, termMonths int, monthlyPayment float64) (Totals, error) {
	if err := requirePositive("amount", amount); err != nil {
		return Totals{}, err
	}
	if err := requireTerm(termMonths); err != nil {
		return Totals{}, err
	}
	if err := requirePositive("monthlyPayment", monthlyPayment); err != nil {
		return Totals{}, err
	}

	totalPayment := monthlyPayment * float64(termMonths)
	totalInterest := totalPayment - amount
	if totalInterest < 0 && -totalInterest <= amount*roundingEpsilon {
		// amount/n*n can land a few ulps under amount.
		totalPayment = amount
		totalInterest = 0
	}
	return Totals{
		TotalPayment:  totalPayment,
		TotalInterest: totalInterest,
		EffectiveRate: totalInterest / amount,
	}, nil
}

func validateTerms(amount float64, termMonths int, annualRate float64) error {
	if err := requirePositive("amount", amount); err != nil {
		return err
	}
	if err := requireTerm(termMonths); err != nil {
		return err
	}
	return requireNonNegative("annualRate", annualRate)
}
