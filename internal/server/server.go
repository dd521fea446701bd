package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/loan-affordability/internal/cache"
	"github.com/iwvelando/loan-affordability/internal/config"
	"github.com/iwvelando/loan-affordability/internal/estimate"
	"github.com/iwvelando/loan-affordability/internal/optimizer"
	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/datetime"
	"github.com/iwvelando/loan-affordability/pkg/format"
	"github.com/iwvelando/loan-affordability/pkg/loans"
	"github.com/iwvelando/loan-affordability/pkg/optimization"
	"github.com/iwvelando/loan-affordability/pkg/output"
	"github.com/iwvelando/loan-affordability/pkg/validation"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Options configures the HTTP handler.
type Options struct {
	MaxUploadSize int64
	Version       string
	// Store caches calculation results. Nil disables caching.
	Store cache.Store
	// Limiter throttles clients. Nil disables rate limiting.
	Limiter  *RateLimiter
	Defaults config.Defaults
	Limits   validation.Limits
}

type handler struct {
	logger        *zap.Logger
	maxUploadSize int64
	version       string
	store         cache.Store
	defaults      config.Defaults
	limits        validation.Limits
}

type estimateOptions struct {
	Optimize bool
	Schedule bool
}

// NewHandler constructs the HTTP handler that serves the affordability API.
func NewHandler(logger *zap.Logger, opts Options) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = constants.DefaultMaxUploadSizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	h := &handler{
		logger:        logger,
		maxUploadSize: opts.MaxUploadSize,
		version:       trimmedVersion,
		store:         opts.Store,
		defaults:      opts.Defaults,
		limits:        opts.Limits.WithDefaults(),
	}

	mux := http.NewServeMux()

	// Single loan preview, the calculator form's backend
	mux.HandleFunc("/api/calculate", h.handleCalculate)

	// Batch estimate endpoint (configuration file upload)
	mux.HandleFunc("/api/estimate", h.handleEstimate)

	mux.HandleFunc("/api/version", h.handleVersion)
	mux.HandleFunc("/api/health", h.handleHealth)

	var wrapped http.Handler = mux
	wrapped = RateLimitMiddleware(logger, opts.Limiter, wrapped)
	wrapped = LoggingMiddleware(logger, wrapped)
	return RequestIDMiddleware(wrapped)
}

type calculateRequest struct {
	Amount                     float64  `json:"amount"`
	TermMonths                 int      `json:"termMonths"`
	AnnualRate                 *float64 `json:"annualRate,omitempty"`
	MonthlyIncome              float64  `json:"monthlyIncome"`
	MonthlyExpenses            float64  `json:"monthlyExpenses"`
	ExistingMonthlyObligations float64  `json:"existingMonthlyObligations"`
	StartDate                  string   `json:"startDate,omitempty"`
	Schedule                   bool     `json:"schedule,omitempty"`
}

func (c calculateRequest) application() config.Application {
	return config.Application{
		Name:                       "calculator",
		Active:                     true,
		Amount:                     c.Amount,
		TermMonths:                 c.TermMonths,
		AnnualRate:                 c.AnnualRate,
		MonthlyIncome:              c.MonthlyIncome,
		MonthlyExpenses:            c.MonthlyExpenses,
		ExistingMonthlyObligations: c.ExistingMonthlyObligations,
		StartDate:                  strings.TrimSpace(c.StartDate),
		Schedule:                   c.Schedule,
	}
}

type calculateResponse struct {
	Terms        loans.LoanTerms       `json:"terms"`
	Profile      loans.BorrowerProfile `json:"profile"`
	Result       loans.Result          `json:"result"`
	Display      displayValues         `json:"display"`
	StartDate    string                `json:"startDate,omitempty"`
	MaturityDate string                `json:"maturityDate,omitempty"`
	Schedule     []loans.Payment       `json:"schedule,omitempty"`
	Warnings     []string              `json:"warnings,omitempty"`
	Cached       bool                  `json:"cached"`
	RequestID    string                `json:"requestId,omitempty"`
}

type displayValues struct {
	Amount         string `json:"amount"`
	MonthlyPayment string `json:"monthlyPayment"`
	TotalPayment   string `json:"totalPayment"`
	TotalInterest  string `json:"totalInterest"`
	EffectiveRate  string `json:"effectiveRate"`
	PDNRatio       string `json:"pdnRatio"`
	RiskLevel      string `json:"riskLevel"`
}

type estimateResponse struct {
	Applications []string            `json:"applications"`
	Estimates    []estimate.Estimate `json:"estimates"`
	CSV          string              `json:"csv"`
	Metrics      []estimateMetrics   `json:"metrics,omitempty"`
	Warnings     []string            `json:"warnings,omitempty"`
	Duration     string              `json:"duration"`
	ConfigYAML   string              `json:"configYaml,omitempty"`
}

type estimateMetrics struct {
	Application   string                 `json:"application"`
	Optimizations []optimization.Summary `json:"optimizations,omitempty"`
}

func (h *handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCalculate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req calculateRequest
	if err := decoder.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return
	}

	app := req.application()
	if app.StartDate != "" {
		if err := datetime.ValidateDate(app.StartDate); err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid startDate: %v", err), op)
			return
		}
	}

	cached := false
	calc := func(terms loans.LoanTerms, profile loans.BorrowerProfile) (loans.Result, error) {
		result, hit, err := h.calculate(terms, profile)
		cached = hit
		return result, err
	}

	result, err := estimate.EvaluateWith(h.logger, app, h.defaults, h.limits, calc)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, loans.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		h.respondErrorWithOp(w, status, err.Error(), op)
		return
	}

	currency := h.defaults.CurrencyCode()
	places := h.defaults.Places()
	response := calculateResponse{
		Terms:   result.Terms,
		Profile: result.Profile,
		Result:  result.Result,
		Display: displayValues{
			Amount:         format.Currency(result.Terms.Amount, currency, places),
			MonthlyPayment: format.Currency(result.Result.MonthlyPayment, currency, places),
			TotalPayment:   format.Currency(result.Result.TotalPayment, currency, places),
			TotalInterest:  format.Currency(result.Result.TotalInterest, currency, places),
			EffectiveRate:  format.Percent(result.Result.EffectiveRate, 2),
			PDNRatio:       format.Percent(result.Result.PDNRatio, 2),
			RiskLevel:      result.Result.RiskLevel.String(),
		},
		StartDate:    result.StartDate,
		MaturityDate: result.MaturityDate,
		Schedule:     result.Schedule,
		Warnings:     result.Warnings,
		Cached:       cached,
		RequestID:    RequestID(r.Context()),
	}

	h.writeJSON(w, http.StatusOK, response)
}

// calculate runs the calculation through the result cache when one is configured.
func (h *handler) calculate(terms loans.LoanTerms, profile loans.BorrowerProfile) (loans.Result, bool, error) {
	if h.store == nil {
		result, err := loans.Calculate(terms, profile)
		return result, false, err
	}

	key := cache.Key(terms, profile)
	if result, ok := h.store.Get(key); ok {
		return result, true, nil
	}

	result, err := loans.Calculate(terms, profile)
	if err != nil {
		return loans.Result{}, false, err
	}
	if err := h.store.Set(key, result); err != nil {
		h.logger.Warn("failed to cache calculation result",
			zap.String("op", "server.calculate"),
			zap.Error(err),
		)
	}
	return result, false, nil
}

func (h *handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleEstimate"
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds limit of %d bytes", h.maxUploadSize), op)
			return
		}
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to parse upload: %v", err), op)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, "missing configuration file", op)
		return
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			h.logger.Warn("failed to close uploaded file",
				zap.String("op", op),
				zap.Error(closeErr),
			)
		}
	}()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to read configuration: %v", err), op)
		return
	}

	opts := estimateOptions{
		Optimize: coerceBool(r.FormValue("optimize")),
		Schedule: coerceBool(r.FormValue("schedule")),
	}
	h.runEstimate(w, buf.Bytes(), start, op, opts)
}

func (h *handler) runEstimate(w http.ResponseWriter, configBytes []byte, start time.Time, op string, opts estimateOptions) {
	cfg, err := config.LoadConfigurationFromReader(bytes.NewReader(configBytes))
	if err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, err.Error(), op)
		return
	}
	if err := cfg.Validate(); err != nil {
		h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("invalid configuration: %v", err), op)
		return
	}

	warnings := cfg.ValidateConfiguration()
	if opts.Schedule {
		for i := range cfg.Applications {
			cfg.Applications[i].Schedule = true
		}
	}

	var optimizationResult *optimizer.Result
	if opts.Optimize {
		runner, err := optimizer.NewRunner(h.logger, cfg)
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("failed to initialize optimizer: %v", err), op)
			return
		}

		optimizationResult, err = runner.Run()
		if err != nil {
			h.respondErrorWithOp(w, http.StatusBadRequest, fmt.Sprintf("optimizer execution failed: %v", err), op)
			return
		}
	}

	results, err := estimate.GetEstimates(h.logger, *cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, loans.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		h.respondErrorWithOp(w, status, fmt.Sprintf("failed to compute estimates: %v", err), op)
		return
	}

	if optimizationResult != nil && !optimizationResult.Empty() {
		optimizationResult.Apply(results)
	}

	displayOpts := output.Options{Currency: cfg.Defaults.CurrencyCode(), Places: cfg.Defaults.Places()}
	csvString, err := output.CsvString(results, displayOpts)
	if err != nil {
		h.respondErrorWithOp(w, http.StatusInternalServerError, fmt.Sprintf("failed to render CSV: %v", err), op)
		return
	}

	var configYAML string
	if opts.Optimize {
		updatedBytes, err := yaml.Marshal(cfg)
		if err != nil {
			h.logger.Warn("failed to marshal optimized configuration",
				zap.String("op", op),
				zap.Error(err),
			)
		} else {
			configYAML = string(updatedBytes)
		}
	}

	elapsed := time.Since(start)

	if results == nil {
		results = []estimate.Estimate{}
	}
	response := estimateResponse{
		Applications: extractApplicationNames(results),
		Estimates:    results,
		CSV:          csvString,
		Metrics:      buildMetrics(results),
		Warnings:     warnings,
		Duration:     elapsed.String(),
		ConfigYAML:   configYAML,
	}

	h.logger.Info("estimates computed",
		zap.String("op", op),
		zap.Int("applications", len(response.Applications)),
		zap.Int("warnings", len(warnings)),
		zap.Duration("duration", elapsed),
	)

	h.writeJSON(w, http.StatusOK, response)
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	payload := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.store != nil {
		payload["cacheEntries"] = h.store.Len()
	}
	h.writeJSON(w, http.StatusOK, payload)
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	writeJSONResponse(h.logger, w, status, payload)
}

func writeJSONResponse(logger *zap.Logger, w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func extractApplicationNames(results []estimate.Estimate) []string {
	names := make([]string, 0, len(results))
	for _, result := range results {
		names = append(names, result.Name)
	}
	return names
}

func buildMetrics(results []estimate.Estimate) []estimateMetrics {
	var metrics []estimateMetrics
	for _, result := range results {
		if len(result.Metrics.Optimizations) == 0 {
			continue
		}
		metrics = append(metrics, estimateMetrics{
			Application:   result.Name,
			Optimizations: append([]optimization.Summary(nil), result.Metrics.Optimizations...),
		})
	}
	return metrics
}

func coerceBool(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false
	}
	if parsed, err := strconv.ParseBool(trimmed); err == nil {
		return parsed
	}
	if parsed, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return parsed != 0
	}
	return strings.EqualFold(trimmed, "yes") || strings.EqualFold(trimmed, "on")
}
