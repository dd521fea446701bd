// Package constants provides shared constants for the loan-affordability application.
package constants

import "time"

// DateTimeLayout is the format used for schedule start dates and the dates
// printed next to each installment.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// PercentageMultiplier is used for ratio to percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 minor unit)
	CurrencyTolerance = 0.01

	// RatioTolerance is the tolerance used when comparing ratios such as PDN
	RatioTolerance = 1e-9
)

// Debt burden (PDN) tier thresholds, expressed as ratios of net available
// income. Each threshold is the inclusive lower bound of the next tier.
const (
	// PDNMediumThreshold starts the medium risk tier
	PDNMediumThreshold = 0.30

	// PDNHighThreshold starts the high risk tier
	PDNHighThreshold = 0.50

	// PDNCriticalThreshold starts the critical risk tier
	PDNCriticalThreshold = 0.65

	// PDNSaturated is reported when net available income is zero or negative.
	PDNSaturated = 1.0
)

// Loan form defaults
const (
	// DefaultAnnualRate is the annual rate applied when an application does not set one
	DefaultAnnualRate = 0.28

	// DefaultMinAmount is the smallest principal accepted by the loan form
	DefaultMinAmount = 500000.0

	// DefaultMaxAmount is the largest principal accepted by the loan form
	DefaultMaxAmount = 50000000.0

	// DefaultMinTermMonths is the shortest term accepted by the loan form
	DefaultMinTermMonths = 3

	// DefaultMaxTermMonths is the longest term accepted by the loan form
	DefaultMaxTermMonths = 36

	// DefaultCurrency is the ISO 4217 code used for display
	DefaultCurrency = "UZS"

	// DefaultCurrencyPlaces is the number of minor-unit digits shown for DefaultCurrency
	DefaultCurrencyPlaces = 0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRequestsPerMinute is the default per-client request budget
	DefaultRequestsPerMinute = 120

	// DefaultBurstSize is the default per-client burst allowance
	DefaultBurstSize = 20

	// DefaultCacheTTL is how long a computed result stays cached
	DefaultCacheTTL = 24 * time.Hour
)

// Optimizer defaults
const (
	// DefaultOptimizerAmountTolerance is the bisection stop width for amounts
	DefaultOptimizerAmountTolerance = 1000.0

	// DefaultOptimizerMaxIterations bounds the number of bisection steps
	DefaultOptimizerMaxIterations = 60
)
