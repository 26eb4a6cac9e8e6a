package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

func rateLimitedRouter(t *testing.T, cfg config.RateLimitConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	limiter := middleware.NewRateLimiter(cfg)
	t.Cleanup(limiter.Stop)

	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return router
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	router := rateLimitedRouter(t, config.RateLimitConfig{
		Enabled:         true,
		RequestsPerMin:  60,
		BurstSize:       2,
		CleanupInterval: time.Minute,
	})

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest("GET", "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected status %d, got %d", i, http.StatusOK, w.Code)
		}
	}
}

func TestRateLimiter_RejectsOverBurst(t *testing.T) {
	router := rateLimitedRouter(t, config.RateLimitConfig{
		Enabled:         true,
		RequestsPerMin:  1,
		BurstSize:       1,
		CleanupInterval: time.Minute,
	})

	req, _ := http.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("First request should pass, got %d", w.Code)
	}

	req, _ = http.NewRequest("GET", "/ping", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
}

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	router := rateLimitedRouter(t, config.RateLimitConfig{Enabled: false})

	for i := 0; i < 20; i++ {
		req, _ := http.NewRequest("GET", "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("Request %d: expected status %d, got %d", i, http.StatusOK, w.Code)
		}
	}
}

func TestRateLimiter_StopEndsCleanup(t *testing.T) {
	limiter := middleware.NewRateLimiter(config.RateLimitConfig{
		Enabled:         true,
		RequestsPerMin:  60,
		BurstSize:       1,
		CleanupInterval: 10 * time.Millisecond,
	})
	limiter.Stop()

	// The sweep goroutine must have exited; the limiter stays usable.
	time.Sleep(30 * time.Millisecond)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest("GET", "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d after Stop, got %d", http.StatusOK, w.Code)
	}
}
