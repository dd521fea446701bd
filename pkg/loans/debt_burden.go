package loans

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/loan-affordability/pkg/constants"
)

// RiskLevel is the debt burden tier derived from a PDN ratio.
type RiskLevel string

// Risk tiers in increasing order of severity.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevels lists every tier from least to most severe.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// DebtBurden holds the debt-to-income figures for a borrower.
type DebtBurden struct {
	NetAvailableIncome      float64   `json:"netAvailableIncome"`
	TotalMonthlyObligations float64   `json:"totalMonthlyObligations"`
	PDNRatio                float64   `json:"pdnRatio"`
	RiskLevel               RiskLevel `json:"riskLevel"`
	// Saturated is set when net available income is zero or negative and
	// PDNRatio was pinned to constants.PDNSaturated. This is a valid result.
	Saturated bool `json:"saturated"`
}

// ComputeDebtBurden calculates the PDN ratio, i.e. the share of net available
// income (income less expenses) consumed by the new monthly payment plus the
// borrower's existing obligations.
//
// When net available income is zero or negative the ratio is set to 1.0
// (fully burdened) instead of dividing by a non-positive number.
func ComputeDebtBurden(monthlyPayment, existingObligations, monthlyIncome, monthlyExpenses float64) (DebtBurden, error) {
	if err := requireNonNegative("monthlyPayment", monthlyPayment); err != nil {
		return DebtBurden{}, err
	}
	if err := requireNonNegative("existingMonthlyObligations", existingObligations); err != nil {
		return DebtBurden{}, err
	}
	if err := requireNonNegative("monthlyIncome", monthlyIncome); err != nil {
		return DebtBurden{}, err
	}
	if err := requireNonNegative("monthlyExpenses", monthlyExpenses); err != nil {
		return DebtBurden{}, err
	}

	burden := DebtBurden{
		NetAvailableIncome:      monthlyIncome - monthlyExpenses,
		TotalMonthlyObligations: monthlyPayment + existingObligations,
	}
	if burden.NetAvailableIncome > 0 {
		burden.PDNRatio = burden.TotalMonthlyObligations / burden.NetAvailableIncome
	} else {
		burden.PDNRatio = constants.PDNSaturated
		burden.Saturated = true
	}
	burden.RiskLevel = ClassifyRisk(burden.PDNRatio)
	return burden, nil
}

// ClassifyRisk maps a PDN ratio onto a risk tier. Tiers are closed on the
// lower bound, so a ratio exactly on a threshold belongs to the higher tier.
func ClassifyRisk(pdnRatio float64) RiskLevel {
	switch {
	case pdnRatio < constants.PDNMediumThreshold:
		return RiskLow
	case pdnRatio < constants.PDNHighThreshold:
		return RiskMedium
	case pdnRatio < constants.PDNCriticalThreshold:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// String implements fmt.Stringer.
func (l RiskLevel) String() string {
	return string(l)
}

// Rank orders tiers from 0 (low) to 3 (critical); unknown tiers rank -1.
func (l RiskLevel) Rank() int {
	for i, level := range RiskLevels {
		if level == l {
			return i
		}
	}
	return -1
}

// Threshold returns the exclusive upper bound of the tier's PDN range.
func (l RiskLevel) Threshold() float64 {
	switch l {
	case RiskLow:
		return constants.PDNMediumThreshold
	case RiskMedium:
		return constants.PDNHighThreshold
	case RiskHigh:
		return constants.PDNCriticalThreshold
	default:
		return math.Inf(1)
	}
}

// AtMost reports whether l is no more severe than other.
func (l RiskLevel) AtMost(other RiskLevel) bool {
	return l.Rank() >= 0 && l.Rank() <= other.Rank()
}

// ParseRiskLevel parses a tier name, case-insensitively.
func ParseRiskLevel(value string) (RiskLevel, error) {
	level := RiskLevel(strings.ToLower(strings.TrimSpace(value)))
	if level.Rank() < 0 {
		return "", fmt.Errorf("unknown risk level %q, expected one of low, medium, high, critical", value)
	}
	return level, nil
}
