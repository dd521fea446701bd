package loans

// LoanTerms describes the requested loan.
type LoanTerms struct {
	Amount     float64 `json:"amount"`
	TermMonths int     `json:"termMonths"`
	// AnnualRate is a fraction, e.g. 0.28 for 28% per year.
	AnnualRate float64 `json:"annualRate"`
}

// BorrowerProfile describes the borrower's monthly cash flow.
type BorrowerProfile struct {
	MonthlyIncome              float64 `json:"monthlyIncome"`
	MonthlyExpenses            float64 `json:"monthlyExpenses"`
	ExistingMonthlyObligations float64 `json:"existingMonthlyObligations"`
}

// Result is the client-side affordability preview for a loan. It is always
// recomputed from its inputs and is never the authoritative decision.
type Result struct {
	MonthlyPayment float64 `json:"monthlyPayment"`
	Totals
	PDNRatio  float64   `json:"pdnRatio"`
	RiskLevel RiskLevel `json:"riskLevel"`
	Saturated bool      `json:"saturated"`
}

// Validate checks the loan terms against the calculator's domain.
func (t LoanTerms) Validate() error {
	return validateTerms(t.Amount, t.TermMonths, t.AnnualRate)
}

// Validate checks that every cash flow figure is non-negative.
func (p BorrowerProfile) Validate() error {
	if err := requireNonNegative("monthlyIncome", p.MonthlyIncome); err != nil {
		return err
	}
	if err := requireNonNegative("monthlyExpenses", p.MonthlyExpenses); err != nil {
		return err
	}
	return requireNonNegative("existingMonthlyObligations", p.ExistingMonthlyObligations)
}

// Calculate runs the full affordability calculation. Inputs are rejected with
// an error wrapping ErrInvalidArgument before anything is computed.
func Calculate(terms LoanTerms, profile BorrowerProfile) (Result, error) {
	if err := terms.Validate(); err != nil {
		return Result{}, err
	}
	if err := profile.Validate(); err != nil {
		return Result{}, err
	}

	payment := monthlyPayment(terms.Amount, terms.TermMonths, terms.AnnualRate)
	totals, err := Aggregate(terms.Amount, terms.TermMonths, payment)
	if err != nil {
		return Result{}, err
	}
	burden, err := ComputeDebtBurden(payment, profile.ExistingMonthlyObligations,
		profile.MonthlyIncome, profile.MonthlyExpenses)
	if err != nil {
		return Result{}, err
	}

	return Result{
		MonthlyPayment: payment,
		Totals:         totals,
		PDNRatio:       burden.PDNRatio,
		RiskLevel:      burden.RiskLevel,
		Saturated:      burden.Saturated,
	}, nil
}
