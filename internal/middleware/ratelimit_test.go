package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/auth"
	"github.com/casimirlb/shortener/internal/metrics"
	"github.com/casimirlb/shortener/internal/ratelimit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitDenies(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, 1000)
	defer limiter.Stop()

	mw := RateLimit(limiter, zap.NewNop(), metrics.New())
	handler := mw(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
		req.RemoteAddr = "203.0.113.7:4242"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.RemoteAddr = "203.0.113.7:4242"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	// A different client IP is unaffected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/abc123", nil)
	req.RemoteAddr = "198.51.100.9:4242"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitKeyedByIdentity(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(1, 1000)
	defer limiter.Stop()

	mw := RateLimit(limiter, zap.NewNop(), metrics.New())
	handler := mw(okHandler())

	send := func(userID string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/my-urls", nil)
		req.RemoteAddr = "203.0.113.7:4242"
		ctx := ContextWithIdentity(req.Context(), &auth.Identity{UserID: userID})
		handler.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("u1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u1"))

	// Same IP, different authenticated user: separate budget.
	assert.Equal(t, http.StatusOK, send("u2"))
}

type erroringLimiter struct{}

func (erroringLimiter) Admit(context.Context, string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("backend down")
}

func (erroringLimiter) Stop() {}

func TestRateLimitFailsOpen(t *testing.T) {
	mw := RateLimit(erroringLimiter{}, zap.NewNop(), metrics.New())
	handler := mw(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/abc123", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr",
			remoteAddr: "203.0.113.7:4242",
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for wins",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			want:       "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

func TestRetryAfterAtLeastOneSecond(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(60, 1000)
	defer limiter.Stop()

	mw := RateLimit(limiter, zap.NewNop(), metrics.New())
	handler := mw(okHandler())

	var denied *httptest.ResponseRecorder
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
		req.RemoteAddr = "203.0.113.7:4242"
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			denied = rec
			break
		}
	}

	require.NotNil(t, denied, "limiter never denied within the minute budget")
	assert.NotEqual(t, "0", denied.Header().Get("Retry-After"))
}
