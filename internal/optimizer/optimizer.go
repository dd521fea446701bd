package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/loan-affordability/internal/config"
	"github.com/iwvelando/loan-affordability/internal/estimate"
	"github.com/iwvelando/loan-affordability/pkg/format"
	"github.com/iwvelando/loan-affordability/pkg/loans"
	"github.com/iwvelando/loan-affordability/pkg/optimization"
	"go.uber.org/zap"
)

// Runner searches each optimizer directive's bounds for the most generous
// loan the borrower can take without exceeding the target risk tier.
type Runner struct {
	logger *zap.Logger
	conf   *config.Configuration
}

type applicationTarget struct {
	index    int
	app      *config.Application
	field    string
	target   loans.RiskLevel
	minValue float64
	maxValue float64
	original float64
}

type evaluation struct {
	value  float64
	result loans.Result
	target loans.RiskLevel
}

func (e evaluation) feasible() bool {
	return e.result.RiskLevel.AtMost(e.target)
}

// Result summarizes optimizer adjustments keyed by application name.
type Result struct {
	Summaries map[string][]optimization.Summary
}

// Empty indicates whether any optimizer adjustments were produced.
func (r Result) Empty() bool {
	return len(r.Summaries) == 0
}

// Apply attaches optimizer summaries to the provided estimates.
func (r Result) Apply(estimates []estimate.Estimate) {
	if len(r.Summaries) == 0 {
		return
	}
	for i := range estimates {
		summaries, ok := r.Summaries[estimates[i].Name]
		if !ok {
			continue
		}
		metrics := estimates[i].Metrics
		metrics.Optimizations = append(metrics.Optimizations, summaries...)
		estimates[i].Metrics = metrics
	}
}

// NewRunner constructs a Runner for the provided configuration.
func NewRunner(logger *zap.Logger, conf *config.Configuration) (*Runner, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, conf: conf}, nil
}

// Run executes all optimizer directives and mutates the configuration in place
// so that subsequent estimates reflect the optimized values.
func (r *Runner) Run() (*Result, error) {
	targets, err := r.collectTargets()
	if err != nil {
		return nil, err
	}

	summaries := make(map[string][]optimization.Summary)
	for _, target := range targets {
		summary, err := r.optimize(target)
		if err != nil {
			return nil, fmt.Errorf("application %s: %w", target.app.Name, err)
		}
		summaries[target.app.Name] = append(summaries[target.app.Name], summary)

		r.logger.Info("optimizer adjusted application field",
			zap.String("op", "optimizer.Run"),
			zap.String("application", target.app.Name),
			zap.String("field", target.field),
			zap.String("targetRisk", target.target.String()),
			zap.Float64("original", summary.Original),
			zap.Float64("optimized", summary.Value),
			zap.String("optimizedDisplay", summary.ValueDisplay),
			zap.Float64("pdnRatio", summary.PDNRatio),
			zap.String("riskLevel", summary.RiskLevel),
			zap.Int("iterations", summary.Iterations),
			zap.Bool("converged", summary.Converged),
		)
	}

	return &Result{Summaries: summaries}, nil
}

func (r *Runner) collectTargets() ([]applicationTarget, error) {
	var targets []applicationTarget

	for i := range r.conf.Applications {
		app := &r.conf.Applications[i]
		if !app.Active || app.Optimizer == nil {
			continue
		}
		if err := app.Optimizer.Validate(); err != nil {
			return nil, fmt.Errorf("application %s: %w", app.Name, err)
		}
		target, err := app.Optimizer.Target()
		if err != nil {
			return nil, fmt.Errorf("application %s: %w", app.Name, err)
		}

		field := config.CanonicalOptimizerField(app.Optimizer.Field)
		minValue, maxValue := *app.Optimizer.Min, *app.Optimizer.Max
		original := app.Amount
		if field == config.OptimizerFieldTerm {
			minValue, maxValue = app.Optimizer.TermBounds()
			original = float64(app.TermMonths)
		}

		targets = append(targets, applicationTarget{
			index:    i,
			app:      app,
			field:    field,
			target:   target,
			minValue: minValue,
			maxValue: maxValue,
			original: original,
		})
	}

	return targets, nil
}

func (r *Runner) evaluate(target applicationTarget, value float64) (evaluation, error) {
	app := *target.app
	switch target.field {
	case config.OptimizerFieldTerm:
		app.TermMonths = int(value)
	default:
		app.Amount = value
	}

	result, err := loans.Calculate(app.LoanTerms(r.conf.Defaults), app.BorrowerProfile())
	if err != nil {
		return evaluation{}, err
	}
	return evaluation{value: value, result: result, target: target.target}, nil
}

func (r *Runner) optimize(target applicationTarget) (optimization.Summary, error) {
	var (
		best       evaluation
		iterations int
		converged  bool
		notes      []string
		err        error
	)

	switch target.field {
	case config.OptimizerFieldTerm:
		best, iterations, converged, err = r.shortestTerm(target)
	default:
		best, iterations, converged, err = r.largestAmount(target)
	}
	if err != nil {
		return optimization.Summary{}, err
	}

	if !best.feasible() {
		notes = append(notes, fmt.Sprintf("unable to reach %s risk within bounds %s to %s",
			target.target,
			r.display(target.field, target.minValue),
			r.display(target.field, target.maxValue)))
		if best.result.Saturated {
			notes = append(notes, "monthly expenses are not below monthly income")
		}
	}

	r.setField(target, best.value)

	return optimization.Summary{
		TargetName:      target.app.Name,
		Field:           target.field,
		TargetRisk:      target.target.String(),
		Original:        target.original,
		OriginalDisplay: r.display(target.field, target.original),
		Value:           best.value,
		ValueDisplay:    r.display(target.field, best.value),
		PDNRatio:        best.result.PDNRatio,
		RiskLevel:       best.result.RiskLevel.String(),
		Iterations:      iterations,
		Converged:       converged,
		Notes:           notes,
	}, nil
}

// largestAmount bisects for the largest amount that stays within the target
// tier. The PDN ratio grows with the amount, so feasibility is monotone.
func (r *Runner) largestAmount(target applicationTarget) (evaluation, int, bool, error) {
	cfg := target.app.Optimizer

	lower, err := r.evaluate(target, target.minValue)
	if err != nil {
		return evaluation{}, 0, false, err
	}
	if !lower.feasible() {
		return lower, 0, false, nil
	}
	upper, err := r.evaluate(target, target.maxValue)
	if err != nil {
		return evaluation{}, 0, false, err
	}
	if upper.feasible() {
		return upper, 0, true, nil
	}

	lo, hi := lower.value, upper.value
	iterations := 0
	for hi-lo > cfg.Tolerance && iterations < cfg.MaxIterations {
		iterations++
		mid := lo + (hi-lo)/2
		eval, err := r.evaluate(target, mid)
		if err != nil {
			return evaluation{}, iterations, false, err
		}
		if eval.feasible() {
			lo = mid
		} else {
			hi = mid
		}
	}
	converged := hi-lo <= cfg.Tolerance

	// Snap down to the tolerance grid anchored at the lower bound; smaller
	// amounts stay feasible.
	snapped := target.minValue + math.Floor((lo-target.minValue)/cfg.Tolerance)*cfg.Tolerance
	best, err := r.evaluate(target, snapped)
	if err != nil {
		return evaluation{}, iterations, false, err
	}
	return best, iterations, converged, nil
}

// shortestTerm bisects for the shortest whole-month term that stays within the
// target tier. Longer terms lower the payment, so feasibility is monotone.
func (r *Runner) shortestTerm(target applicationTarget) (evaluation, int, bool, error) {
	cfg := target.app.Optimizer
	step := math.Max(1, math.Round(cfg.Tolerance))

	upper, err := r.evaluate(target, target.maxValue)
	if err != nil {
		return evaluation{}, 0, false, err
	}
	if !upper.feasible() {
		return upper, 0, false, nil
	}
	lower, err := r.evaluate(target, target.minValue)
	if err != nil {
		return evaluation{}, 0, false, err
	}
	if lower.feasible() {
		return lower, 0, true, nil
	}

	best := upper
	lo, hi := lower.value, upper.value
	iterations := 0
	for hi-lo > step && iterations < cfg.MaxIterations {
		iterations++
		mid := math.Floor(lo + (hi-lo)/2)
		eval, err := r.evaluate(target, mid)
		if err != nil {
			return evaluation{}, iterations, false, err
		}
		if eval.feasible() {
			hi = mid
			best = eval
		} else {
			lo = mid
		}
	}
	return best, iterations, hi-lo <= step, nil
}

func (r *Runner) setField(target applicationTarget, value float64) {
	app := &r.conf.Applications[target.index]
	switch target.field {
	case config.OptimizerFieldTerm:
		app.TermMonths = int(value)
	default:
		app.Amount = value
	}
}

func (r *Runner) display(field string, value float64) string {
	if field == config.OptimizerFieldTerm {
		return fmt.Sprintf("%d months", int(value))
	}
	return format.Currency(value, r.conf.Defaults.CurrencyCode(), r.conf.Defaults.Places())
}
