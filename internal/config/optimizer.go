package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/loans"
)

const (
	OptimizerFieldAmount = "amount"
	OptimizerFieldTerm   = "term"

	defaultTargetRisk        = loans.RiskMedium
	defaultToleranceDiscrete = 1
)

// OptimizerConfig defines a single-parameter optimization directive. The
// optimizer searches [Min, Max] for the largest amount (or shortest term)
// whose risk tier is no worse than TargetRisk.
type OptimizerConfig struct {
	Field         string   `yaml:"field,omitempty" mapstructure:"field"`
	TargetRisk    string   `yaml:"targetRisk,omitempty" mapstructure:"targetRisk"`
	Min           *float64 `yaml:"min,omitempty" mapstructure:"min"`
	Max           *float64 `yaml:"max,omitempty" mapstructure:"max"`
	Tolerance     float64  `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
	MaxIterations int      `yaml:"maxIterations,omitempty" mapstructure:"maxIterations"`
}

// CanonicalOptimizerField returns the canonical identifier for an optimizer field.
func CanonicalOptimizerField(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return OptimizerFieldAmount
	}
	switch strings.ToLower(trimmed) {
	case "amount", "principal":
		return OptimizerFieldAmount
	case "term", "termmonths", "term_months", "term-months":
		return OptimizerFieldTerm
	default:
		return strings.ToLower(trimmed)
	}
}

// Normalize ensures defaults and canonical values are applied before validation.
func (o *OptimizerConfig) Normalize() {
	if o == nil {
		return
	}
	o.Field = CanonicalOptimizerField(o.Field)

	o.TargetRisk = strings.ToLower(strings.TrimSpace(o.TargetRisk))
	if o.TargetRisk == "" {
		o.TargetRisk = string(defaultTargetRisk)
	}

	if o.Tolerance <= 0 {
		switch o.Field {
		case OptimizerFieldTerm:
			o.Tolerance = defaultToleranceDiscrete
		default:
			o.Tolerance = constants.DefaultOptimizerAmountTolerance
		}
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = constants.DefaultOptimizerMaxIterations
	}
}

// Target returns the parsed risk tier the optimizer must stay within.
func (o *OptimizerConfig) Target() (loans.RiskLevel, error) {
	return loans.ParseRiskLevel(o.TargetRisk)
}

// TermBounds returns the whole-month range a term search covers: Min rounded
// up and Max rounded down.
func (o *OptimizerConfig) TermBounds() (float64, float64) {
	return math.Ceil(*o.Min), math.Floor(*o.Max)
}

// Validate returns an error when the optimizer configuration is unsupported.
func (o *OptimizerConfig) Validate() error {
	if o == nil {
		return fmt.Errorf("optimizer configuration cannot be nil")
	}

	o.Normalize()

	target, err := o.Target()
	if err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if target == loans.RiskCritical {
		return fmt.Errorf("optimizer target risk %q places no limit on the search", o.TargetRisk)
	}

	if o.Min == nil {
		return fmt.Errorf("optimizer requires a minimum bound")
	}
	if o.Max == nil {
		return fmt.Errorf("optimizer requires a maximum bound")
	}

	switch o.Field {
	case OptimizerFieldAmount:
		if *o.Min <= 0 {
			return fmt.Errorf("optimizer amount minimum %.2f must be positive", *o.Min)
		}
		if *o.Min >= *o.Max {
			return fmt.Errorf("optimizer minimum %.2f must be less than maximum %.2f", *o.Min, *o.Max)
		}
	case OptimizerFieldTerm:
		minTerm, maxTerm := o.TermBounds()
		if minTerm < 1 {
			return fmt.Errorf("optimizer term minimum %g must be at least 1", *o.Min)
		}
		if minTerm >= maxTerm {
			return fmt.Errorf("optimizer term range [%g, %g] holds no whole-month range", *o.Min, *o.Max)
		}
	default:
		return fmt.Errorf("optimizer field %q is not supported", o.Field)
	}

	return nil
}
