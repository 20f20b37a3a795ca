package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/checklist/pkg/auth"
	"github.com/platinummonkey/checklist/pkg/config"
	"github.com/platinummonkey/checklist/pkg/observability"
)

func newTestLimiter(requests, burst int) (*RateLimiter, *time.Time) {
	limiter := NewRateLimiter(&RateLimitConfig{
		RequestsPerWindow: requests,
		WindowDuration:    time.Second,
		BurstSize:         burst,
	})
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	return limiter, &now
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter, now := newTestLimiter(10, 2)
	ctx := context.Background()

	// Should allow initial requests up to limit + burst
	allowed := 0
	for i := 0; i < 20; i++ {
		d, err := limiter.Allow(ctx, "user:a")
		require.NoError(t, err)
		if d.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 12, allowed)

	d, err := limiter.Allow(ctx, "user:a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.ResetAfter, time.Duration(0))

	// After waiting, tokens should refill
	*now = now.Add(200 * time.Millisecond)
	d, err = limiter.Allow(ctx, "user:a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestRateLimiter_KeysAreIndependent(t *testing.T) {
	limiter, _ := newTestLimiter(1, 0)
	ctx := context.Background()

	d, _ := limiter.Allow(ctx, "ip:192.0.2.1")
	assert.True(t, d.Allowed)
	d, _ = limiter.Allow(ctx, "ip:192.0.2.1")
	assert.False(t, d.Allowed)

	d, _ = limiter.Allow(ctx, "ip:192.0.2.2")
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, limiter.Len())
}

func TestRateLimiter_Remaining(t *testing.T) {
	limiter, _ := newTestLimiter(10, 2)

	assert.Equal(t, 12, limiter.Remaining("user:a"))

	_, err := limiter.Allow(context.Background(), "user:a")
	require.NoError(t, err)
	assert.Equal(t, 11, limiter.Remaining("user:a"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, errors.New("connection refused")
}

func (failingLimiter) Backend() string { return BackendRedis }

func serveLimited(m *RateLimitMiddleware, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_Anonymous(t *testing.T) {
	userLimiter, _ := newTestLimiter(5, 0)
	anonLimiter, _ := newTestLimiter(2, 0)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	m := NewRateLimitMiddleware(userLimiter, anonLimiter, true, nil).WithRecorder(metrics)

	newReq := func() *http.Request {
		req := httptest.NewRequest("POST", "/api/v1/login", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		return req
	}

	w := serveLimited(m, newReq())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, serveLimited(m, newReq()).Code)

	w = serveLimited(m, newReq())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitedTotal.WithLabelValues(BackendMemory)))

	// Another address has its own bucket
	other := newReq()
	other.RemoteAddr = "192.0.2.11:4000"
	assert.Equal(t, http.StatusOK, serveLimited(m, other).Code)
}

func TestRateLimitMiddleware_AuthenticatedUsesUserLimiter(t *testing.T) {
	userLimiter, _ := newTestLimiter(5, 0)
	anonLimiter, _ := newTestLimiter(1, 0)
	m := NewRateLimitMiddleware(userLimiter, anonLimiter, true, nil)

	principal := &auth.Principal{UserID: auth.NewUserID(), Roles: []auth.Role{auth.RoleUser}}
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest("GET", "/api/v1/checklists", nil)
		req = req.WithContext(WithPrincipal(req.Context(), principal))
		w := serveLimited(m, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	}

	assert.Equal(t, 0, userLimiter.Remaining("user:"+principal.UserID.String()))
	assert.Equal(t, 1, anonLimiter.Remaining("ip:192.0.2.1"))
}

func TestRateLimitMiddleware_BackendFailure(t *testing.T) {
	t.Run("fail open", func(t *testing.T) {
		m := NewRateLimitMiddleware(failingLimiter{}, failingLimiter{}, true, nil)
		w := serveLimited(m, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("fail closed", func(t *testing.T) {
		m := NewRateLimitMiddleware(failingLimiter{}, failingLimiter{}, false, nil)
		w := serveLimited(m, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestNewRateLimitMiddlewareFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().RateLimit

	m := NewRateLimitMiddlewareFromConfig(cfg, nil, nil)
	assert.Equal(t, BackendMemory, m.userLimiter.Backend())
	assert.Equal(t, BackendMemory, m.anonymousLimiter.Backend())

	client, _ := newMiniredisClient(t)
	m = NewRateLimitMiddlewareFromConfig(cfg, client, nil)
	assert.Equal(t, BackendRedis, m.userLimiter.Backend())
	assert.Equal(t, cfg.FailOpen, m.failOpen)
}
