package middleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/turtacn/QuestionBank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/QuestionBank/pkg/errors"
	"github.com/turtacn/QuestionBank/pkg/types/common"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// ClientLimiter keeps one token bucket per client key. Buckets idle for
// longer than the idle timeout are evicted by Sweep.
type ClientLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewClientLimiter allows perSecond requests per client with the given
// burst. A burst below 1 is raised to 1.
func NewClientLimiter(perSecond float64, burst int, idle time.Duration) *ClientLimiter {
	if burst < 1 {
		burst = 1
	}
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	return &ClientLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow takes one token for key and reports the tokens left.
func (l *ClientLimiter) Allow(key string) (bool, int) {
	now := l.now()
	l.mu.Lock()
	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	l.mu.Unlock()

	allowed := c.lim.AllowN(now, 1)
	remaining := int(math.Max(0, math.Floor(c.lim.TokensAt(now))))
	return allowed, remaining
}

// Sweep drops buckets not used within the idle timeout and returns how
// many remain.
func (l *ClientLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, c := range l.clients {
		if c.seen.Before(cutoff) {
			delete(l.clients, k)
		}
	}
	return len(l.clients)
}

// Run sweeps idle buckets every interval until ctx is done.
func (l *ClientLimiter) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}

// clientKey is the remote host. chi's RealIP runs first, so proxied
// requests are keyed by the forwarded address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit rejects requests over the client's budget with 429 and the
// standard error envelope.
func RateLimit(l *ClientLimiter, logger logging.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(l.burst)
	retryAfter := "1"
	if l.limit > 0 && l.limit < 1 {
		retryAfter = strconv.Itoa(int(math.Ceil(1 / float64(l.limit))))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining := l.Allow(clientKey(r))
			w.Header().Set(HeaderRateLimitLimit, limit)
			w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			logging.FromContext(r.Context(), logger).Warn("rate limited",
				logging.String("client", clientKey(r)), logging.String("path", r.URL.Path))
			code := errors.ErrCodeTooManyRequests
			resp := common.NewErrorResponse(code.String(), errors.DefaultMessageForCode(code), "")
			resp.RequestID = logging.RequestIDFromContext(r.Context())
			w.Header().Set(HeaderRetryAfter, retryAfter)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(resp)
		})
	}
}

//Personal.AI order the ending
