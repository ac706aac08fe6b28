package limiter

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_RejectsOverLimit(t *testing.T) {
	r, b := PerMinute(2)
	l := NewIPRateLimiter("test", r, b)
	t.Cleanup(l.Stop)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("198.51.100.7:1000").Code)
	assert.Equal(t, http.StatusNoContent, call("198.51.100.7:1001").Code)

	rec := call("198.51.100.7:1002")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 30, retry, 1)
	assert.JSONEq(t, `{"code":1007,"error":"Too many requests, please try again later"}`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, call("198.51.100.8:1000").Code, "buckets are per caller")
}

func TestPerSecond(t *testing.T) {
	r, b := PerSecond(50)
	assert.EqualValues(t, 50, r)
	assert.Equal(t, 50, b)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "203.0.113.9:5555"
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown_ip", ClientIP(req))
}

func TestStopIsIdempotent(t *testing.T) {
	l := NewIPRateLimiter("test", 1, 1)
	l.Stop()
	l.Stop()
}
