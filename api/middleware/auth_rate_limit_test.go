package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type countingLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newCountingLimiter() *countingLimiter {
	return &countingLimiter{counts: map[string]int64{}}
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, 0, c.err
	}
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func loginRequest(email, remote string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"hunter22"}`))
	req.RemoteAddr = remote
	return req
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"password":"hunter22"`)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimitEmailCounter(t *testing.T) {
	limiter := newCountingLimiter()
	h := AuthRateLimit(AuthThrottle{Name: "Login", Window: time.Minute, PerEmail: 2}, limiter, nil)(okHandler(t))

	emails := []string{"shopper@example.com", " Shopper@Example.com ", "SHOPPER@example.com"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest(email, fmt.Sprintf("10.0.0.%d:4000", i+1)))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "60", rec.Header().Get("Retry-After"))
		require.Equal(t, string(pkgerrors.CodeRateLimit), errorCode(t, rec))
	}
	for scope := range limiter.counts {
		require.True(t, strings.HasPrefix(scope, "email:login:"), scope)
		require.NotContains(t, scope, "example.com")
	}
}

func TestAuthRateLimitIPCounter(t *testing.T) {
	h := AuthRateLimit(AuthThrottle{Name: "register", Window: time.Minute, PerIP: 1}, newCountingLimiter(), nil)(okHandler(t))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, loginRequest("a@example.com", "5.6.7.8:1234"))
	require.Equal(t, http.StatusOK, first.Code)

	forwarded := loginRequest("b@example.com", "10.0.0.9:1234")
	forwarded.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
	second := httptest.NewRecorder()
	h.ServeHTTP(second, forwarded)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestAuthRateLimitStoreFailure(t *testing.T) {
	limiter := newCountingLimiter()
	limiter.err = errors.New("redis timeout")
	h := AuthRateLimit(AuthThrottle{Window: time.Minute, PerIP: 5}, limiter, nil)(okHandler(t))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAuthRateLimitDisabled(t *testing.T) {
	next := okHandler(t)
	for _, th := range []AuthThrottle{{Window: 0, PerIP: 1}, {Window: time.Minute}} {
		h := AuthRateLimit(th, newCountingLimiter(), nil)(next)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := httptest.NewRecorder()
	AuthRateLimit(AuthThrottle{Window: time.Minute, PerIP: 1}, nil, nil)(next).ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1:1"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5000"
	require.Equal(t, "192.0.2.7", clientIP(req))
	req.Header.Set("X-Real-IP", "198.51.100.2")
	require.Equal(t, "198.51.100.2", clientIP(req))
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 ,198.51.100.2")
	require.Equal(t, "203.0.113.9", clientIP(req))
}
