package integration

import (
	"fmt"
	"os"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/iwvelando/loan-affordability/internal/cache"
	"github.com/iwvelando/loan-affordability/internal/config"
	"github.com/iwvelando/loan-affordability/internal/estimate"
	"github.com/iwvelando/loan-affordability/pkg/loans"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

// TestPerformance tests performance characteristics of the full pipeline.
func TestPerformance(t *testing.T) {
	logger := zap.NewNop()

	start := time.Now()
	conf, err := config.LoadConfiguration("../test_config.yaml")
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	loadTime := time.Since(start)

	start = time.Now()
	results, err := estimate.GetEstimates(logger, *conf)
	if err != nil {
		t.Fatalf("GetEstimates failed: %v", err)
	}
	estimateTime := time.Since(start)

	start = time.Now()
	_, _ = runPipeline(t)
	pipelineTime := time.Since(start)

	t.Logf("Performance metrics:")
	t.Logf("  Load config: %v", loadTime)
	t.Logf("  Compute estimates: %v", estimateTime)
	t.Logf("  Full pipeline with optimizer: %v", pipelineTime)

	if total := loadTime + estimateTime + pipelineTime; total > 5*time.Second {
		t.Errorf("Total processing time %v exceeds 5 second threshold", total)
	}
	if len(results) != 4 {
		t.Errorf("Expected 4 results, got %d", len(results))
	}
}

// TestDataConsistency validates that multiple runs produce identical results.
func TestDataConsistency(t *testing.T) {
	var firstResults []estimate.Estimate

	for run := 0; run < 3; run++ {
		_, results := runPipeline(t)
		if run == 0 {
			firstResults = results
			continue
		}
		if !reflect.DeepEqual(results, firstResults) {
			t.Errorf("Run %d produced different estimates than the first run", run)
		}
	}
}

// TestConcurrentCalculations exercises the calculator and the shared cache from
// many goroutines.
func TestConcurrentCalculations(t *testing.T) {
	store := cache.NewMemoryStore(time.Minute)
	defer store.Close()

	profile := loans.BorrowerProfile{MonthlyIncome: 10000000, MonthlyExpenses: 3000000}
	expected := make(map[int]loans.Result)
	for term := 3; term <= 36; term++ {
		result, err := loans.Calculate(loans.LoanTerms{Amount: 5000000, TermMonths: term, AnnualRate: 0.28}, profile)
		if err != nil {
			t.Fatalf("Calculate() error = %v", err)
		}
		expected[term] = result
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for term := 3; term <= 36; term++ {
				terms := loans.LoanTerms{Amount: 5000000, TermMonths: term, AnnualRate: 0.28}
				key := cache.Key(terms, profile)
				result, ok := store.Get(key)
				if !ok {
					var err error
					result, err = loans.Calculate(terms, profile)
					if err != nil {
						errs <- err
						return
					}
					_ = store.Set(key, result)
				}
				if result != expected[term] {
					errs <- fmt.Errorf("term %d: got %+v, expected %+v", term, result, expected[term])
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if store.Len() != 34 {
		t.Errorf("expected 34 cached results, got %d", store.Len())
	}
}

func BenchmarkCalculate(b *testing.B) {
	terms := loans.LoanTerms{Amount: 5000000, TermMonths: 12, AnnualRate: 0.28}
	profile := loans.BorrowerProfile{MonthlyIncome: 10000000, MonthlyExpenses: 3000000}
	for i := 0; i < b.N; i++ {
		if _, err := loans.Calculate(terms, profile); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerateSchedule(b *testing.B) {
	generator := loans.NewAmortizationScheduleGenerator(zap.NewNop())
	terms := loans.LoanTerms{Amount: 50000000, TermMonths: 36, AnnualRate: 0.28}
	for i := 0; i < b.N; i++ {
		if _, err := generator.GenerateSchedule(terms, "2025-11"); err != nil {
			b.Fatal(err)
		}
	}
}
