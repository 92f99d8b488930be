package middleware

import (
	"net"
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/neristhub/campushub/internal/auth"
)

// RateLimiter enforces a per-minute budget per caller on one group of
// creation routes. Each route group (lost items, papers, marketplace)
// gets its own RateLimiter with its own budget.
//
// Callers are keyed by user ID when authenticated, otherwise by client
// IP. Buckets refill continuously: a caller who bursts through a full
// budget earns the next slot after a minute divided by the budget.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	perMin  int
}

func NewRateLimiter(perMin int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		perMin:  perMin,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.buckets[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(rl.perMin)/60.0, rl.perMin)
	rl.buckets[key] = l
	return l
}

// Allow reports whether the caller identified by key has budget left,
// consuming one token if so.
func (rl *RateLimiter) Allow(key string) bool {
	if rl.perMin <= 0 {
		return true
	}
	return rl.limiter(key).Allow()
}

// Handler wraps an HTTP handler chain with the limit. Requests over
// budget end with 429 and a JSON error.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(callerKey(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limited","message":"too many requests, slow down"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerKey prefers the authenticated identity over the client address,
// so a shared hostel NAT does not merge everyone into one bucket.
func callerKey(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		return "user:" + identity.ID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
