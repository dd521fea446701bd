// Package estimate defines the data structures related to a given loan
// application's affordability estimate and includes functions for computing them.
package estimate

import (
	"fmt"

	"github.com/iwvelando/loan-affordability/internal/config"
	"github.com/iwvelando/loan-affordability/pkg/datetime"
	"github.com/iwvelando/loan-affordability/pkg/loans"
	"github.com/iwvelando/loan-affordability/pkg/optimization"
	"github.com/iwvelando/loan-affordability/pkg/validation"
	"go.uber.org/zap"
)

// Estimate holds all information related to a specific application.
type Estimate struct {
	Name         string                `json:"name"`
	Terms        loans.LoanTerms       `json:"terms"`
	Profile      loans.BorrowerProfile `json:"profile"`
	Result       loans.Result          `json:"result"`
	StartDate    string                `json:"startDate,omitempty"`
	MaturityDate string                `json:"maturityDate,omitempty"`
	Schedule     []loans.Payment       `json:"schedule,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
	Metrics      Metrics               `json:"metrics"`
}

// Metrics carries derived information attached after the calculation.
type Metrics struct {
	Optimizations []optimization.Summary `json:"optimizations,omitempty"`
}

// GetEstimates computes the estimates for all active applications.
func GetEstimates(logger *zap.Logger, conf config.Configuration) ([]Estimate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var results []Estimate
	for _, app := range conf.Applications {
		if !app.Active {
			logger.Debug(fmt.Sprintf("skipping application %s because it is inactive", app.Name),
				zap.String("op", "estimate.GetEstimates"),
			)
			continue
		}

		result, err := Evaluate(logger, app, conf.Defaults, conf.Limits)
		if err != nil {
			return results, fmt.Errorf("application %s: %w", app.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// Calculator produces the affordability result for a loan.
type Calculator func(loans.LoanTerms, loans.BorrowerProfile) (loans.Result, error)

// Evaluate computes the estimate for a single application.
func Evaluate(logger *zap.Logger, app config.Application, defaults config.Defaults, limits validation.Limits) (Estimate, error) {
	return EvaluateWith(logger, app, defaults, limits, loans.Calculate)
}

// EvaluateWith computes the estimate using calc for the core result, which
// lets callers put a cache in front of the calculation.
func EvaluateWith(logger *zap.Logger, app config.Application, defaults config.Defaults, limits validation.Limits, calc Calculator) (Estimate, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calc == nil {
		calc = loans.Calculate
	}

	terms := app.LoanTerms(defaults)
	profile := app.BorrowerProfile()

	result, err := calc(terms, profile)
	if err != nil {
		return Estimate{}, err
	}

	estimate := Estimate{
		Name:      app.Name,
		Terms:     terms,
		Profile:   profile,
		Result:    result,
		StartDate: app.EffectiveStartDate(defaults),
		Warnings:  validation.ValidateForm(terms, profile, limits),
	}

	if estimate.StartDate != "" {
		estimate.MaturityDate, err = datetime.MaturityDate(estimate.StartDate, terms.TermMonths)
		if err != nil {
			return Estimate{}, err
		}
	}

	if app.Schedule {
		generator := loans.NewAmortizationScheduleGenerator(logger)
		estimate.Schedule, err = generator.GenerateSchedule(terms, estimate.StartDate)
		if err != nil {
			return Estimate{}, err
		}
	}

	logger.Debug("computed estimate",
		zap.String("op", "estimate.Evaluate"),
		zap.String("application", app.Name),
		zap.Float64("monthlyPayment", result.MonthlyPayment),
		zap.Float64("pdnRatio", result.PDNRatio),
		zap.String("riskLevel", result.RiskLevel.String()),
		zap.Bool("saturated", result.Saturated),
	)

	return estimate, nil
}

// Find returns the estimate with the given name.
func Find(estimates []Estimate, name string) (Estimate, bool) {
	for _, estimate := range estimates {
		if estimate.Name == name {
			return estimate, true
		}
	}
	return Estimate{}, false
}
