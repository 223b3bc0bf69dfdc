package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carewell/patient-registry/config"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
)

var redisConnErr = errors.New("redis connection error")

func setupRateLimitRouter(cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	r.Use(RateLimiter(cfg))
	r.POST("/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return r
}

func doRateLimitRequest(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRateLimiterWithoutRedis(t *testing.T) {
	config.SetRedisClient(nil)
	defer config.SetRedisClient(nil)

	r := setupRateLimitRouter(RateLimitConfig{Limit: 5, Window: 15 * time.Minute})

	// Without Redis the limiter fails open.
	for i := 0; i < 10; i++ {
		if rr := doRateLimitRequest(r); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}
}

func TestRateLimiterWithinLimit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	config.SetRedisClient(rdb)
	defer config.SetRedisClient(nil)

	window := 15 * time.Minute
	key := "ratelimit:/login:192.168.1.1"
	r := setupRateLimitRouter(RateLimitConfig{Limit: 5, Window: window})

	for i := int64(1); i <= 5; i++ {
		mock.ExpectIncr(key).SetVal(i)
		mock.ExpectExpire(key, window).SetVal(true)
		if rr := doRateLimitRequest(r); rr.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 within the limit, got %d", i, rr.Code)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	config.SetRedisClient(rdb)
	defer config.SetRedisClient(nil)

	window := 15 * time.Minute
	key := "ratelimit:/login:192.168.1.1"
	r := setupRateLimitRouter(RateLimitConfig{Limit: 5, Window: window})

	// The 6th attempt in the window exceeds the counter and is rejected.
	mock.ExpectIncr(key).SetVal(6)
	mock.ExpectExpire(key, window).SetVal(true)

	rr := doRateLimitRequest(r)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 over the limit, got %d: %s", rr.Code, rr.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestRateLimiterFailsOpenOnRedisError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	defer rdb.Close()
	config.SetRedisClient(rdb)
	defer config.SetRedisClient(nil)

	window := 15 * time.Minute
	key := "ratelimit:/login:192.168.1.1"
	r := setupRateLimitRouter(RateLimitConfig{Limit: 5, Window: window})

	mock.ExpectIncr(key).SetErr(redisConnErr)

	if rr := doRateLimitRequest(r); rr.Code != http.StatusOK {
		t.Fatalf("expected 200 when Redis errors, got %d", rr.Code)
	}
}
