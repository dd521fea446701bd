// Package cache keeps recently computed affordability results for a limited
// time. A cached result is a convenience copy of a pure computation and can
// always be recomputed from its key.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iwvelando/loan-affordability/pkg/constants"
	"github.com/iwvelando/loan-affordability/pkg/loans"
)

// Store is a key-value store with expiry.
type Store interface {
	Get(key string) (loans.Result, bool)
	Set(key string, result loans.Result) error
	Delete(key string)
	Len() int
}

type entry struct {
	result    loans.Result
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expired entries are never returned and
// are removed by a background janitor.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a store whose entries live for ttl. A non-positive
// ttl uses the default of 24 hours. Call Close to stop the janitor.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	s := &MemoryStore{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go s.janitor(janitorInterval(ttl))
	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	return interval
}

// Get returns the cached result for key if it has not expired.
func (s *MemoryStore) Get(key string) (loans.Result, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || !s.now().Before(e.expiresAt) {
		return loans.Result{}, false
	}
	return e.result, true
}

// Set stores result under key for the store's TTL.
func (s *MemoryStore) Set(key string, result loans.Result) error {
	s.mu.Lock()
	s.entries[key] = entry{result: result, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of stored entries, including expired entries the
// janitor has not yet removed.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Cleanup removes every expired entry.
func (s *MemoryStore) Cleanup() {
	now := s.now()
	s.mu.Lock()
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}

// Close stops the janitor. It is safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Cleanup()
		case <-s.stop:
			return
		}
	}
}

// Key identifies a calculation by its full input tuple.
func Key(terms loans.LoanTerms, profile loans.BorrowerProfile) string {
	parts := []string{
		formatFloat(terms.Amount),
		strconv.Itoa(terms.TermMonths),
		formatFloat(terms.AnnualRate),
		formatFloat(profile.MonthlyIncome),
		formatFloat(profile.MonthlyExpenses),
		formatFloat(profile.ExistingMonthlyObligations),
	}
	return strings.Join(parts, "|")
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
