package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte("ok"))
})

func TestLogger_RecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	rec := httptest.NewRecorder()
	Logger(logger)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activities", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "msg=http_request")
	assert.Contains(t, buf.String(), "status=418")
	assert.Contains(t, buf.String(), "path=/activities")
}

func TestCORS_Preflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/activities", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per IP")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "token refilled after a second")
}

func TestRateLimiter_SweepsIdleVisitors(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("10.0.0.1")
	now = now.Add(5 * time.Minute)
	rl.Allow("10.0.0.2")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	_, stale := rl.visitors["10.0.0.1"]
	assert.False(t, stale)
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimiter_Middleware429(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	h := rl.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/activities", nil)
	req.RemoteAddr = "192.0.2.1:1234"

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	assert.Equal(t, http.StatusTeapot, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.True(t, strings.Contains(second.Body.String(), "Too many requests"))
}

func TestCSRF_RejectsPostWithoutToken(t *testing.T) {
	key := bytes.Repeat([]byte{7}, 32)
	h := CSRF(key, false, nil)(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/actions", strings.NewReader("action=signup")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code, "safe methods pass")
}
