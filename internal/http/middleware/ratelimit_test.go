package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadintake/pkg/logging"
)

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewRedisLimiter(client, "lead", 2, 10*time.Second)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, ok, "third request in the window is rejected")

	ok, _ = limiter.Allow(ctx, "198.51.100.1")
	assert.True(t, ok, "other clients have their own budget")

	now = now.Add(10 * time.Second)
	ok, _ = limiter.Allow(ctx, "203.0.113.7")
	assert.True(t, ok, "next window starts fresh")

	keys := mr.Keys()
	require.NotEmpty(t, keys)
	assert.Greater(t, mr.TTL(keys[0]), time.Duration(0))
}

func TestRedisLimiter_ErrorsWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisLimiter(client, "lead", 1, time.Second).Allow(context.Background(), "x")
	assert.Error(t, err)
}

func TestLocalLimiter_TokenBucket(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLocalLimiter(1, 2)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	a, _ := limiter.Allow(ctx, "ip")
	b, _ := limiter.Allow(ctx, "ip")
	c, _ := limiter.Allow(ctx, "ip")
	assert.True(t, a)
	assert.True(t, b)
	assert.False(t, c)

	now = now.Add(time.Second)
	d, _ := limiter.Allow(ctx, "ip")
	assert.True(t, d, "one token refills per second")
}

func TestLocalLimiter_SweepsIdleVisitors(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewLocalLimiter(1, 1)
	limiter.now = func() time.Time { return now }

	_, _ = limiter.Allow(context.Background(), "old")
	now = now.Add(visitorIdle + time.Minute)
	_, _ = limiter.Allow(context.Background(), "new")

	assert.NotContains(t, limiter.visitors, "old")
	assert.Contains(t, limiter.visitors, "new")
}

func TestWindowFor(t *testing.T) {
	assert.Equal(t, 10*time.Second, WindowFor(0.5, 5))
	assert.Equal(t, time.Minute, WindowFor(0, 5))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis: connection refused")
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	logger := logging.New("error")

	serve := func(mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/lead", nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		mw(ok).ServeHTTP(rec, req)
		return rec
	}

	rec := serve(RateLimit(denyAll{}, nil, 10*time.Second, logger))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"kind":"rate_limited"`)

	fallback := NewLocalLimiter(1, 1)
	mw := RateLimit(failingLimiter{}, fallback, time.Second, logger)
	assert.Equal(t, http.StatusCreated, serve(mw).Code, "fallback admits the first request")
	assert.Equal(t, http.StatusTooManyRequests, serve(mw).Code, "fallback enforces its own budget")

	assert.Equal(t, http.StatusCreated, serve(RateLimit(nil, nil, 0, logger)).Code)
}
