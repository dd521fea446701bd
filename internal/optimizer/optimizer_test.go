package optimizer

import (
	"math"
	"testing"

	"github.com/iwvelando/loan-affordability/internal/config"
	"github.com/iwvelando/loan-affordability/internal/estimate"
	"github.com/iwvelando/loan-affordability/pkg/loans"
	"github.com/iwvelando/loan-affordability/pkg/validation"
	"go.uber.org/zap"
)

func baseConfiguration(app config.Application) *config.Configuration {
	rate := 0.28
	app.Active = true
	if app.Name == "" {
		app.Name = "Application"
	}
	return &config.Configuration{
		Defaults:     config.Defaults{AnnualRate: &rate},
		Limits:       validation.DefaultLimits(),
		Applications: []config.Application{app},
	}
}

func TestRunnerFindsLargestAmount(t *testing.T) {
	conf := baseConfiguration(config.Application{
		Amount:          5000000,
		TermMonths:      12,
		MonthlyIncome:   10000000,
		MonthlyExpenses: 3000000,
		Optimizer: &config.OptimizerConfig{
			Field:      config.OptimizerFieldAmount,
			TargetRisk: "low",
			Min:        floatPtr(500000),
			Max:        floatPtr(50000000),
			Tolerance:  1000,
		},
	})

	runner, err := NewRunner(zap.NewNop(), conf)
	if err != nil {
		t.Fatalf("failed to create optimizer runner: %v", err)
	}
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("optimizer run failed: %v", err)
	}

	summaries := result.Summaries["Application"]
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	summary := summaries[0]

	if !summary.Converged {
		t.Errorf("expected optimizer to converge")
	}
	if summary.Iterations == 0 {
		t.Errorf("expected bisection iterations")
	}
	if summary.Original != 5000000 {
		t.Errorf("original = %v, expected 5000000", summary.Original)
	}
	if summary.RiskLevel != string(loans.RiskLow) || summary.PDNRatio >= 0.30 {
		t.Errorf("optimized amount should stay low risk, got %s (%.4f)", summary.RiskLevel, summary.PDNRatio)
	}
	if math.Mod(summary.Value, 1000) != 0 {
		t.Errorf("optimized amount %v should sit on the tolerance grid", summary.Value)
	}
	if conf.Applications[0].Amount != summary.Value {
		t.Errorf("configuration amount %v was not updated to %v", conf.Applications[0].Amount, summary.Value)
	}
	if !summary.Changed() {
		t.Errorf("expected the amount to change")
	}

	// One more grid step past the tolerance must leave the low tier.
	above, err := loans.Calculate(loans.LoanTerms{Amount: summary.Value + 2000, TermMonths: 12, AnnualRate: 0.28},
		loans.BorrowerProfile{MonthlyIncome: 10000000, MonthlyExpenses: 3000000})
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if above.RiskLevel == loans.RiskLow {
		t.Errorf("amount %v is still low risk; optimizer stopped short", summary.Value+2000)
	}

	if summary.OriginalDisplay != "5,000,000 UZS" {
		t.Errorf("original display = %q", summary.OriginalDisplay)
	}
}

func TestRunnerKeepsUpperBoundWhenFeasible(t *testing.T) {
	conf := baseConfiguration(config.Application{
		Amount:          1000000,
		TermMonths:      24,
		MonthlyIncome:   500000000,
		MonthlyExpenses: 1000000,
		Optimizer: &config.OptimizerConfig{
			Min: floatPtr(500000),
			Max: floatPtr(50000000),
		},
	})

	runner, _ := NewRunner(nil, conf)
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("optimizer run failed: %v", err)
	}
	summary := result.Summaries["Application"][0]
	if summary.Value != 50000000 || !summary.Converged || summary.Iterations != 0 {
		t.Errorf("expected upper bound without iterations, got %+v", summary)
	}
	if summary.TargetRisk != string(loans.RiskMedium) {
		t.Errorf("expected default target medium, got %s", summary.TargetRisk)
	}
}

func TestRunnerReportsInfeasibleBounds(t *testing.T) {
	conf := baseConfiguration(config.Application{
		Amount:          5000000,
		TermMonths:      12,
		MonthlyIncome:   1000000,
		MonthlyExpenses: 1500000,
		Optimizer: &config.OptimizerConfig{
			TargetRisk: "high",
			Min:        floatPtr(500000),
			Max:        floatPtr(50000000),
		},
	})

	runner, _ := NewRunner(zap.NewNop(), conf)
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("optimizer run failed: %v", err)
	}
	summary := result.Summaries["Application"][0]
	if summary.Converged {
		t.Errorf("saturated profile cannot converge")
	}
	if summary.Value != 500000 {
		t.Errorf("expected lower bound to be applied, got %v", summary.Value)
	}
	if len(summary.Notes) != 2 {
		t.Errorf("expected bound and saturation notes, got %v", summary.Notes)
	}
	if summary.RiskLevel != string(loans.RiskCritical) {
		t.Errorf("expected critical risk, got %s", summary.RiskLevel)
	}
}

func TestRunnerFindsShortestTerm(t *testing.T) {
	conf := baseConfiguration(config.Application{
		Amount:          10000000,
		TermMonths:      36,
		MonthlyIncome:   3000000,
		MonthlyExpenses: 1000000,
		Optimizer: &config.OptimizerConfig{
			Field:      "term",
			TargetRisk: "medium",
			Min:        floatPtr(3),
			Max:        floatPtr(36),
		},
	})

	runner, _ := NewRunner(zap.NewNop(), conf)
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("optimizer run failed: %v", err)
	}
	summary := result.Summaries["Application"][0]
	if summary.Value != 12 {
		t.Fatalf("expected shortest term 12, got %v", summary.Value)
	}
	if !summary.Converged {
		t.Errorf("expected convergence")
	}
	if summary.ValueDisplay != "12 months" || summary.OriginalDisplay != "36 months" {
		t.Errorf("unexpected displays: %q, %q", summary.OriginalDisplay, summary.ValueDisplay)
	}
	if conf.Applications[0].TermMonths != 12 {
		t.Errorf("configuration term was not updated, got %d", conf.Applications[0].TermMonths)
	}
}

func TestResultApply(t *testing.T) {
	conf := baseConfiguration(config.Application{
		Name:            "Consumer loan",
		Amount:          5000000,
		TermMonths:      12,
		MonthlyIncome:   10000000,
		MonthlyExpenses: 3000000,
		Optimizer: &config.OptimizerConfig{
			TargetRisk: "low",
			Min:        floatPtr(500000),
			Max:        floatPtr(50000000),
		},
	})
	conf.Applications = append(conf.Applications, config.Application{
		Name:          "Untouched",
		Active:        true,
		Amount:        1000000,
		TermMonths:    12,
		MonthlyIncome: 5000000,
	})

	runner, _ := NewRunner(zap.NewNop(), conf)
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("optimizer run failed: %v", err)
	}
	if result.Empty() {
		t.Fatalf("expected optimizer summaries")
	}

	estimates, err := estimate.GetEstimates(zap.NewNop(), *conf)
	if err != nil {
		t.Fatalf("GetEstimates() error = %v", err)
	}
	result.Apply(estimates)

	optimized, _ := estimate.Find(estimates, "Consumer loan")
	if len(optimized.Metrics.Optimizations) != 1 {
		t.Fatalf("expected optimization metrics on the optimized estimate")
	}
	if optimized.Terms.Amount != optimized.Metrics.Optimizations[0].Value {
		t.Errorf("estimate amount %v does not reflect optimized value %v", optimized.Terms.Amount, optimized.Metrics.Optimizations[0].Value)
	}
	if optimized.Result.RiskLevel != loans.RiskLow {
		t.Errorf("optimized estimate should be low risk, got %s", optimized.Result.RiskLevel)
	}

	untouched, _ := estimate.Find(estimates, "Untouched")
	if len(untouched.Metrics.Optimizations) != 0 {
		t.Errorf("unexpected optimization metrics on untouched estimate")
	}
}

func TestRunnerErrors(t *testing.T) {
	if _, err := NewRunner(zap.NewNop(), nil); err == nil {
		t.Errorf("expected error for nil configuration")
	}

	conf := baseConfiguration(config.Application{
		Amount:     1000000,
		TermMonths: 12,
		Optimizer:  &config.OptimizerConfig{Field: "rate", Min: floatPtr(0), Max: floatPtr(1)},
	})
	runner, _ := NewRunner(zap.NewNop(), conf)
	if _, err := runner.Run(); err == nil {
		t.Errorf("expected error for unsupported optimizer field")
	}

	noWholeMonth := baseConfiguration(config.Application{
		Amount:     1000000,
		TermMonths: 12,
		Optimizer:  &config.OptimizerConfig{Field: "term", Min: floatPtr(3.5), Max: floatPtr(3.9)},
	})
	runner, _ = NewRunner(zap.NewNop(), noWholeMonth)
	if _, err := runner.Run(); err == nil {
		t.Errorf("expected error for a term range without a whole month")
	}
	if noWholeMonth.Applications[0].TermMonths != 12 {
		t.Errorf("rejected search must leave the term untouched, got %d", noWholeMonth.Applications[0].TermMonths)
	}

	inactive := baseConfiguration(config.Application{
		Amount:    1000000,
		Optimizer: &config.OptimizerConfig{Field: "rate"},
	})
	inactive.Applications[0].Active = false
	runner, _ = NewRunner(zap.NewNop(), inactive)
	result, err := runner.Run()
	if err != nil {
		t.Fatalf("inactive applications should be skipped, got %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected no summaries for inactive applications")
	}
}

func floatPtr(value float64) *float64 {
	return &value
}
