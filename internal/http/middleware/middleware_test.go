package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/wolfman30/sms-router/internal/cache"
	"github.com/wolfman30/sms-router/pkg/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitPerIP(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, nil)
	handler := RateLimit(limiter)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/messaging/twilio/webhook", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/messaging/twilio/webhook", nil)
	other.RemoteAddr = "203.0.113.8:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitPrefersRealIPHeader(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1, nil)
	handler := RateLimit(limiter)(okHandler())

	remotes := []string{"10.0.0.1:1000", "10.0.0.2:2000"}
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remotes[i]
		req.Header.Set("X-Real-Ip", "198.51.100.4")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code)
	}
}

func TestRateLimiterBucketsExpire(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	buckets := cache.New[*rate.Limiter](cache.WithClock(func() time.Time { return now }))
	limiter := NewRateLimiter(0.001, 1, buckets)

	require.True(t, limiter.Allow("198.51.100.9"))
	require.False(t, limiter.Allow("198.51.100.9"))
	assert.Equal(t, 1, limiter.Buckets().Stats().ActiveKeys)

	now = now.Add(idleLimiterTTL + time.Second)
	assert.Equal(t, 1, limiter.Buckets().Sweep())
	assert.True(t, limiter.Allow("198.51.100.9"))
}

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	RateLimit(nil)(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-1", rec.Header().Get("X-Request-ID"))
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request completed", line["msg"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "/stats", line["path"])
}
