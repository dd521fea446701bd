// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single optimization directive.
type Summary struct {
	TargetName      string   `json:"targetName"`
	Field           string   `json:"field"`
	TargetRisk      string   `json:"targetRisk"`
	Original        float64  `json:"original"`
	Value           float64  `json:"value"`
	PDNRatio        float64  `json:"pdnRatio"`
	RiskLevel       string   `json:"riskLevel"`
	Iterations      int      `json:"iterations"`
	Converged       bool     `json:"converged"`
	Notes           []string `json:"notes,omitempty"`
	OriginalDisplay string   `json:"originalDisplay,omitempty"`
	ValueDisplay    string   `json:"valueDisplay,omitempty"`
}

// Changed reports whether the optimizer moved the field away from its original value.
func (s Summary) Changed() bool {
	return s.Value != s.Original
}
