package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 10 * time.Minute
)

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	limiters          map[string]*limiterEntry
	mu                sync.Mutex
	requestsPerMinute int
	perSecond         rate.Limit
	burst             int
	trustForwardedFor bool
	now               func() time.Time
	stopCh            chan struct{}
	stopOnce          sync.Once
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter that refills requestsPerMinute tokens per
// minute for every client, up to burst. Stop must be called to release the
// cleanup goroutine.
func NewRateLimiter(requestsPerMinute, burst int) *RateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if burst <= 0 {
		burst = 1
	}

	rl := &RateLimiter{
		limiters:          make(map[string]*limiterEntry),
		requestsPerMinute: requestsPerMinute,
		perSecond:         rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:             burst,
		now:               time.Now,
		stopCh:            make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// TrustForwardedFor makes the limiter key clients on the first
// X-Forwarded-For entry instead of the TCP peer. Enable it only behind a
// proxy that overwrites the header.
func (r *RateLimiter) TrustForwardedFor(trust bool) {
	r.mu.Lock()
	r.trustForwardedFor = trust
	r.mu.Unlock()
}

func (r *RateLimiter) trustsForwardedFor() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trustForwardedFor
}

// Allow reports whether the client may make a request now and consumes a
// token if so.
func (r *RateLimiter) Allow(client string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, exists := r.limiters[client]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.perSecond, r.burst)}
		r.limiters[client] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// State returns the client's remaining tokens and the time its bucket is full again.
func (r *RateLimiter) State(client string) (remaining int, reset time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, exists := r.limiters[client]
	if !exists {
		return r.burst, now
	}

	tokens := entry.limiter.TokensAt(now)
	if tokens < 0 {
		tokens = 0
	}
	missing := float64(r.burst) - tokens
	refill := time.Duration(missing / float64(r.perSecond) * float64(time.Second))
	return int(tokens), now.Add(refill)
}

// RetryAfter returns how long the client must wait for its next token.
func (r *RateLimiter) RetryAfter(client string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.limiters[client]
	if !exists {
		return 0
	}
	tokens := entry.limiter.TokensAt(r.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(r.perSecond) * float64(time.Second))
}

// Len returns the number of tracked clients.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Prune drops clients not seen within limiterTTL.
func (r *RateLimiter) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for client, entry := range r.limiters {
		if now.Sub(entry.lastSeen) > limiterTTL {
			delete(r.limiters, client)
		}
	}
}

func (r *RateLimiter) cleanup() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Prune()
		case <-r.stopCh:
			return
		}
	}
}

// Stop ends the cleanup goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// RateLimitMiddleware rejects clients that exceed their budget with 429. The
// health endpoint is never limited.
func RateLimitMiddleware(logger *zap.Logger, rl *RateLimiter, next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/health" {
			next.ServeHTTP(w, r)
			return
		}

		client := clientIP(r, rl.trustsForwardedFor())
		allowed := rl.Allow(client)
		remaining, reset := rl.State(client)

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", rl.requestsPerMinute))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", reset.Unix()))

		if !allowed {
			retryAfter := int(rl.RetryAfter(client).Seconds() + 0.999)
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))

			logger.Warn("rate limit exceeded",
				zap.String("op", "server.RateLimitMiddleware"),
				zap.String("client", client),
				zap.Int("retryAfter", retryAfter),
				zap.String("requestId", RequestID(r.Context())),
			)

			writeJSONResponse(logger, w, http.StatusTooManyRequests, map[string]string{
				"error": fmt.Sprintf("too many requests, retry after %d seconds", retryAfter),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
