package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/internal/testutil"
)

func TestClientLimiter_BurstThenRefill(t *testing.T) {
	l := NewClientLimiter(1, 2, time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	ok, remaining := l.Allow("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, remaining = l.Allow("10.0.0.1")
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)
	ok, _ = l.Allow("10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok, "buckets are per client")

	now = now.Add(time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestClientLimiter_Sweep(t *testing.T) {
	l := NewClientLimiter(5, 0, time.Minute)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(45 * time.Second)
	l.Allow("b")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, l.Sweep())
	now = now.Add(time.Hour)
	assert.Equal(t, 0, l.Sweep())
}

func TestRateLimit_Rejects(t *testing.T) {
	logger := testutil.NewMockLogger()
	l := NewClientLimiter(0.5, 1, 0)
	var calls int
	h := RequestID(RateLimit(l, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(HeaderRateLimitLimit))
	assert.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get(HeaderRetryAfter))
	assert.Contains(t, rec.Body.String(), `"code":"COMMON_007"`)
	assert.Contains(t, rec.Body.String(), rec.Header().Get(HeaderRequestID))
	assert.Equal(t, 1, calls)

	msg, ok := logger.Find("warn", "rate limited")
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1", msg.Field("client"))
	assert.NotEmpty(t, msg.Field(logging.FieldRequestID))
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", clientKey(r))
	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", clientKey(r))
}

//Personal.AI order the ending
