package middleware

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/wolfman30/sms-router/internal/cache"
)

// idleLimiterTTL is how long an IP's bucket survives without traffic.
const idleLimiterTTL = 10 * time.Minute

// RateLimiter provides per-IP token buckets. Buckets live in a cache.Manager
// so idle IPs expire and are removed by the cache sweep.
type RateLimiter struct {
	buckets *cache.Manager[*rate.Limiter]
	limit   rate.Limit
	burst   int
}

// NewRateLimiter allows perSecond requests per second per IP with the given
// burst. buckets may be nil.
func NewRateLimiter(perSecond float64, burst int, buckets *cache.Manager[*rate.Limiter]) *RateLimiter {
	if buckets == nil {
		buckets = cache.New[*rate.Limiter](cache.WithDefaultTTL(idleLimiterTTL))
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{buckets: buckets, limit: rate.Limit(perSecond), burst: burst}
}

// Buckets exposes the backing cache for sweeping and stats.
func (rl *RateLimiter) Buckets() *cache.Manager[*rate.Limiter] {
	return rl.buckets
}

// Allow reports whether a request from ip fits its bucket.
func (rl *RateLimiter) Allow(ip string) bool {
	limiter, _ := rl.buckets.UpdateRefresh("ip:"+ip, idleLimiterTTL, func(old *rate.Limiter, ok bool) *rate.Limiter {
		if ok && old != nil {
			return old
		}
		return rate.NewLimiter(rl.limit, rl.burst)
	})
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// RateLimit rejects requests over the limiter's rate with 429. A nil limiter
// disables throttling.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers X-Real-Ip, which chi's RealIP middleware copies into
// RemoteAddr, and strips the port.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
