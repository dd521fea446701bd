// Package output provides utilities for formatting and displaying affordability estimates.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/loan-affordability/internal/estimate"
	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Options controls how amounts are displayed.
type Options struct {
	Currency string
	Places   int32
	// Schedule prints the amortization table for estimates that carry one.
	Schedule bool
}

// DefaultOptions returns the display options for the default currency.
func DefaultOptions() Options {
	return Options{Currency: constants.DefaultCurrency, Places: constants.DefaultCurrencyPlaces}
}

// CsvHeader lists the CSV columns in output order.
var CsvHeader = []string{
	"name", "amount", "termMonths", "annualRate", "monthlyPayment", "totalPayment",
	"totalInterest", "effectiveRate", "pdnRatio", "riskLevel", "saturated", "maturityDate", "notes",
}

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(w io.Writer, results []estimate.Estimate, opts Options) {
	p := message.NewPrinter(language.English)
	money := func(amount float64) string {
		return format.Currency(amount, opts.Currency, opts.Places)
	}

	for i, result := range results {
		r := result.Result
		fmt.Fprintf(w, "--- Estimate for application %s ---\n", result.Name)
		fmt.Fprintf(w, "Amount          | %s\n", money(result.Terms.Amount))
		fmt.Fprintf(w, "Term            | %d months\n", result.Terms.TermMonths)
		fmt.Fprintf(w, "Annual rate     | %s\n", format.Percent(result.Terms.AnnualRate, 2))
		fmt.Fprintf(w, "Monthly payment | %s\n", money(r.MonthlyPayment))
		fmt.Fprintf(w, "Total payment   | %s\n", money(r.TotalPayment))
		fmt.Fprintf(w, "Total interest  | %s\n", money(r.TotalInterest))
		fmt.Fprintf(w, "Effective rate  | %s\n", format.Percent(r.EffectiveRate, 2))
		fmt.Fprintf(w, "Debt burden     | %s (%s)\n", format.Percent(r.PDNRatio, 2), r.RiskLevel)
		if result.MaturityDate != "" {
			fmt.Fprintf(w, "Maturity        | %s\n", result.MaturityDate)
		}

		for _, summary := range result.Metrics.Optimizations {
			status := "converged"
			if !summary.Converged {
				status = "not converged"
			}
			fmt.Fprintf(w, "Optimized %s: %s -> %s for %s risk (%s after %d iterations)\n",
				summary.Field, summary.OriginalDisplay, summary.ValueDisplay, summary.TargetRisk, status, summary.Iterations)
			for _, note := range summary.Notes {
				fmt.Fprintf(w, "  note: %s\n", note)
			}
		}
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warning)
		}

		if opts.Schedule && len(result.Schedule) > 0 {
			fmt.Fprintf(w, "\nMonth | Date    | Payment | Principal | Interest | Balance\n")
			fmt.Fprintf(w, "_____ | _______ | _______ | _________ | ________ | _______\n")
			row := fmt.Sprintf("%%d | %%s | %%.%[1]df | %%.%[1]df | %%.%[1]df | %%.%[1]df\n", opts.Places)
			for _, payment := range result.Schedule {
				date := payment.Date
				if date == "" {
					date = "-"
				}
				_, _ = p.Fprintf(w, row,
					payment.Month, date,
					format.RoundMinor(payment.Payment, opts.Places),
					format.RoundMinor(payment.Principal, opts.Places),
					format.RoundMinor(payment.Interest, opts.Places),
					format.RoundMinor(payment.RemainingPrincipal, opts.Places))
			}
		}

		if i < len(results)-1 {
			fmt.Fprintf(w, "\n")
		}
	}
}

// CsvFormat outputs one row per estimate in comma-separated value format.
func CsvFormat(w io.Writer, results []estimate.Estimate, opts Options) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CsvHeader); err != nil {
		return err
	}

	for _, result := range results {
		r := result.Result
		notes := append([]string(nil), result.Warnings...)
		for _, summary := range result.Metrics.Optimizations {
			notes = append(notes, summary.Notes...)
		}
		row := []string{
			result.Name,
			format.Fixed(result.Terms.Amount, opts.Places),
			strconv.Itoa(result.Terms.TermMonths),
			strconv.FormatFloat(result.Terms.AnnualRate, 'f', -1, 64),
			format.Fixed(r.MonthlyPayment, opts.Places),
			format.Fixed(r.TotalPayment, opts.Places),
			format.Fixed(r.TotalInterest, opts.Places),
			format.Fixed(r.EffectiveRate, 6),
			format.Fixed(r.PDNRatio, 6),
			r.RiskLevel.String(),
			strconv.FormatBool(r.Saturated),
			result.MaturityDate,
			strings.Join(notes, "; "),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// CsvString returns the CSV rendering of results.
func CsvString(results []estimate.Estimate, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := CsvFormat(&buf, results, opts); err != nil {
		return "", err
	}
	return buf.String(), nil
}
