package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiter_AllowWithinLimit(t *testing.T) {
	rl := NewRateLimiterWithNow(3, time.Minute, time.Now)
	for i := 0; i < 3; i++ {
		if !rl.Allow("ip-1") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if rl.Allow("ip-1") {
		t.Fatal("expected 4th request to be limited")
	}
	if !rl.Allow("ip-2") {
		t.Fatal("other keys must not be affected")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	current := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiterWithNow(1, time.Minute, func() time.Time { return current })

	if !rl.Allow("ip-1") {
		t.Fatal("first request must pass")
	}
	if rl.Allow("ip-1") {
		t.Fatal("second request in window must fail")
	}

	current = current.Add(2 * time.Minute)
	if !rl.Allow("ip-1") {
		t.Fatal("request after window reset must pass")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl := NewRateLimiterWithNow(1, time.Minute, time.Now)

	r := gin.New()
	r.POST("/", RateLimitMiddleware(rl), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}
