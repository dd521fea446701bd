package loans

import (
	"fmt"

	"github.com/iwvelando/loan-affordability/pkg/datetime"
	"go.uber.org/zap"
)

// Payment holds the values for a single installment.
type Payment struct {
	Month              int     `json:"month"`
	Date               string  `json:"date,omitempty"`
	Payment            float64 `json:"payment"`
	Principal          float64 `json:"principal"`
	Interest           float64 `json:"interest"`
	RemainingPrincipal float64 `json:"balance"`
}

// AmortizationScheduleGenerator provides utilities for generating loan amortization schedules
type AmortizationScheduleGenerator struct {
	logger *zap.Logger
}

// NewAmortizationScheduleGenerator creates a new generator instance
func NewAmortizationScheduleGenerator(logger *zap.Logger) *AmortizationScheduleGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AmortizationScheduleGenerator{logger: logger}
}

// GenerateSchedule creates the full month-by-month amortization schedule for
// an annuity loan. When startDate (YYYY-MM) is set, each installment is
// labelled with its calendar month starting there.
//
// The final installment repays whatever principal remains so the closing
// balance is exactly zero.
func (g *AmortizationScheduleGenerator) GenerateSchedule(terms LoanTerms, startDate string) ([]Payment, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}
	if startDate != "" {
		if err := datetime.ValidateDate(startDate); err != nil {
			return nil, err
		}
	}

	monthlyPayment := monthlyPayment(terms.Amount, terms.TermMonths, terms.AnnualRate)
	schedule := make([]Payment, 0, terms.TermMonths)
	balance := terms.Amount

	for month := 1; month <= terms.TermMonths; month++ {
		current := Payment{Month: month}
		current.Interest = CalculateInterestPayment(balance, terms.AnnualRate)

		if month == terms.TermMonths {
			if residue := balance - (monthlyPayment - current.Interest); residue != 0 {
				g.logger.Debug(fmt.Sprintf("folding residual principal %.6f into final installment", residue),
					zap.String("op", "loans.GenerateSchedule"),
					zap.Int("month", month),
				)
			}
			current.Principal = balance
			current.Payment = balance + current.Interest
			current.RemainingPrincipal = 0
		} else {
			current.Payment = monthlyPayment
			current.Principal = monthlyPayment - current.Interest
			current.RemainingPrincipal = balance - current.Principal
		}

		if startDate != "" {
			date, err := datetime.OffsetDate(startDate, datetime.DateTimeLayout, month-1)
			if err != nil {
				return nil, err
			}
			current.Date = date
		}

		schedule = append(schedule, current)
		balance = current.RemainingPrincipal
	}

	g.logger.Debug("generated amortization schedule",
		zap.String("op", "loans.GenerateSchedule"),
		zap.Float64("amount", terms.Amount),
		zap.Int("termMonths", terms.TermMonths),
		zap.Float64("monthlyPayment", monthlyPayment),
	)

	return schedule, nil
}

// ScheduleInterest sums the interest column of a schedule.
func ScheduleInterest(schedule []Payment) float64 {
	total := 0.0
	for _, payment := range schedule {
		total += payment.Interest
	}
	return total
}
