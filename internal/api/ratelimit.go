package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter enforces a global and a per-client request budget.
type RateLimiter struct {
	global   *rate.Limiter
	perIP    map[string]*ipLimiter
	mu       sync.RWMutex
	maxBurst int
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter and starts its idle-entry
// cleanup loop.
func NewRateLimiter(globalRPS float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		global:   rate.NewLimiter(rate.Limit(globalRPS), burst),
		perIP:    make(map[string]*ipLimiter),
		maxBurst: burst,
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, l := range rl.perIP {
			if now.Sub(l.lastSeen) > 5*time.Minute {
				delete(rl.perIP, ip)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) getLimiter(ip string, perIPRPS float64) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// The lastSeen touch mutates the entry, so the lookup holds the
	// write lock too; cleanup reads lastSeen under the same lock.
	if l, exists := rl.perIP[ip]; exists {
		l.lastSeen = time.Now()
		return l.limiter
	}

	limiter := rate.NewLimiter(rate.Limit(perIPRPS), rl.maxBurst)
	rl.perIP[ip] = &ipLimiter{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// Middleware rejects requests over either budget with 429.
func (rl *RateLimiter) Middleware(perIPRPS float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.global.Allow() {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			ip := clientIP(r)
			if !rl.getLimiter(ip, perIPRPS).Allow() {
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ConcurrencyLimiter caps in-flight requests with a semaphore.
type ConcurrencyLimiter struct {
	semaphore chan struct{}
}

// NewConcurrencyLimiter creates a concurrency limiter.
func NewConcurrencyLimiter(maxConcurrent int) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
	}
}

// Middleware rejects requests over the concurrency cap with 503.
func (cl *ConcurrencyLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case cl.semaphore <- struct{}{}:
				defer func() { <-cl.semaphore }()
				next.ServeHTTP(w, r)
			case <-r.Context().Done():
				http.Error(w, "Request timeout", http.StatusRequestTimeout)
			default:
				http.Error(w, "Server too busy", http.StatusServiceUnavailable)
			}
		})
	}
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if comma := strings.IndexByte(xff, ','); comma != -1 {
			return strings.TrimSpace(xff[:comma])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if colon := strings.LastIndexByte(r.RemoteAddr, ':'); colon != -1 {
		return r.RemoteAddr[:colon]
	}
	return r.RemoteAddr
}
