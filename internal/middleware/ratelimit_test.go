package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/itchan-dev/community/internal/middleware/ratelimiter"
	"github.com/stretchr/testify/assert"
)

func TestRateLimit(t *testing.T) {
	rl := ratelimiter.New(0, 1, time.Hour)
	defer rl.Stop()
	handler := RateLimit(rl, GetIP, http.MethodPost)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(method, addr string) int {
		req := httptest.NewRequest(method, "/password-forget", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, do(http.MethodPost, "10.0.0.1:5678"))
	assert.Equal(t, http.StatusOK, do(http.MethodGet, "10.0.0.1:1234"), "GET is not limited")
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "10.0.0.2:1234"))
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "not-an-ip"))
}

func TestGetIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	ip, err := GetIP(req)
	assert.NoError(t, err)
	assert.Equal(t, "::1", ip)
}

