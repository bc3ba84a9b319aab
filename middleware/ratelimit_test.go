package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, limit int) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := NewFixedWindowLimiter(client, "test:ratelimit", limit, time.Minute)
	if err != nil {
		t.Fatalf("new limiter: %v", err)
	}
	limiter.now = func() time.Time { return time.Date(2026, time.October, 18, 12, 0, 30, 0, time.UTC) }
	return limiter, mr
}

func TestFixedWindowLimiterBlocksOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "auth:10.0.0.1")
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
	allowed, err := limiter.Allow(ctx, "auth:10.0.0.1")
	if err != nil {
		t.Fatalf("third request: %v", err)
	}
	if allowed {
		t.Fatalf("third request in the window must be blocked")
	}

	if allowed, err := limiter.Allow(ctx, "auth:10.0.0.2"); err != nil || !allowed {
		t.Fatalf("other client must have its own quota: allowed=%v err=%v", allowed, err)
	}
}

func TestFixedWindowLimiterResetsNextWindow(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatalf("first request must pass")
	}
	if allowed, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatalf("second request must be blocked")
	}

	limiter.now = func() time.Time { return time.Date(2026, time.October, 18, 12, 1, 5, 0, time.UTC) }
	if allowed, err := limiter.Allow(ctx, "k"); err != nil || !allowed {
		t.Fatalf("next window must start fresh: allowed=%v err=%v", allowed, err)
	}
}

func TestFixedWindowLimiterSetsExpiry(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5)
	if _, err := limiter.Allow(context.Background(), "k"); err != nil {
		t.Fatalf("allow: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one counter key, got %v", keys)
	}
	if ttl := mr.TTL(keys[0]); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("counter ttl = %v, want within one window", ttl)
	}
}

func TestFixedWindowLimiterFailsClosed(t *testing.T) {
	limiter, mr := newTestLimiter(t, 5)
	mr.Close()

	allowed, err := limiter.Allow(context.Background(), "k")
	if err == nil {
		t.Fatalf("expected redis error")
	}
	if allowed {
		t.Fatalf("limiter must deny when redis is unavailable")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, _ := newTestLimiter(t, 1)

	router := gin.New()
	router.POST("/login", RateLimit(limiter, "auth"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("first request: status %d", rec.Code)
	}
	if rec := send(); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status %d, want 429", rec.Code)
	}
}

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RateLimit(nil, "auth"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d, want 204", rec.Code)
	}
}

func TestNewFixedWindowLimiterValidatesArguments(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tests := []struct {
		name    string
		client  *redis.Client
		limit   int
		window  time.Duration
		wantErr bool
	}{
		{"valid", client, 5, time.Minute, false},
		{"one millisecond window", client, 5, time.Millisecond, false},
		{"nil client", nil, 5, time.Minute, true},
		{"zero limit", client, 0, time.Minute, true},
		{"zero window", client, 5, 0, true},
		{"sub-millisecond window", client, 5, 500 * time.Microsecond, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewFixedWindowLimiter(tt.client, "", tt.limit, tt.window)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if allowed, err := limiter.Allow(context.Background(), "k"); err != nil || !allowed {
					t.Fatalf("first request must pass: allowed=%v err=%v", allowed, err)
				}
			}
		})
	}
}
