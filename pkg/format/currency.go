// Package format renders calculator output for display. This is the only
// place amounts are rounded to a currency's minor unit.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RoundMinor rounds amount half away from zero to the given number of
// minor-unit digits.
func RoundMinor(amount float64, places int32) float64 {
	return decimal.NewFromFloat(amount).Round(places).InexactFloat64()
}

// Currency returns the amount with thousands separators followed by the
// currency code (e.g., "5,000,000 UZS" or "-1,234.56 USD").
func Currency(amount float64, code string, places int32) string {
	formatted := Number(amount, places)
	if code == "" {
		return formatted
	}
	return formatted + " " + code
}

// Number returns the amount rounded to places with thousands separators
// (e.g., "-1,234.56").
func Number(amount float64, places int32) string {
	rounded := decimal.NewFromFloat(amount).Round(places)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	return sign + groupThousands(rounded.StringFixed(places))
}

// Fixed returns the amount rounded to places without grouping, for
// machine-readable output (e.g., "482529.94").
func Fixed(amount float64, places int32) string {
	return decimal.NewFromFloat(amount).Round(places).StringFixed(places)
}

// Percent renders a ratio as a percentage (e.g., 0.158 becomes "15.8%").
func Percent(ratio float64, places int32) string {
	return decimal.NewFromFloat(ratio).Shift(2).StringFixed(places) + "%"
}

func groupThousands(fixed string) string {
	parts := strings.SplitN(fixed, ".", 2)
	intPart := parts[0]

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	if len(parts) == 2 {
		return intPart + "." + parts[1]
	}
	return intPart
}
