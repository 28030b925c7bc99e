package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/virtengine/virtengine-sub011/internal/apierrors"
	"github.com/virtengine/virtengine-sub011/internal/httputil"
)

// RateLimitConfig configures a token-bucket limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultRateLimitConfig returns the customer API's default shape.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 100, Burst: 200}
}

// RateLimiter wraps golang.org/x/time/rate, keyed per caller (by remote
// address or bearer subject) so one noisy client cannot starve others.
type RateLimiter struct {
	mu       sync.Mutex
	cfg      RateLimitConfig
	limiters map[string]*rate.Limiter
}

// NewRateLimiter builds a RateLimiter.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 100
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}
	return &RateLimiter{cfg: cfg, limiters: make(map[string]*rate.Limiter)}
}

func (r *RateLimiter) limiterFor(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), r.cfg.Burst)
		r.limiters[key] = l
	}
	return l
}

// Allow reports whether a request keyed by key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	return r.limiterFor(key).AllowN(time.Now(), 1)
}

// Handler wraps next, rejecting requests over the limit with 429. Keying
// defaults to RemoteAddr; handlers needing per-subject limits should call
// Allow directly instead.
func (r *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Allow(req.RemoteAddr) {
			httputil.WriteError(w, req, apierrors.RateLimited())
			return
		}
		next.ServeHTTP(w, req)
	})
}
