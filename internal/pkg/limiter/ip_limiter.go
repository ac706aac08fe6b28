/*
Package limiter provides per-caller rate limiting based on client IP addresses.

Each caller gets its own token bucket (rate.Limiter). A janitor goroutine drops
buckets that have refilled completely so idle callers do not accumulate in memory.
*/
package limiter

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"chatify/internal/pkg/errs"
	"chatify/internal/pkg/logx"
	"chatify/internal/pkg/resp"
)

const cleanupInterval = 3 * time.Minute

// IPRateLimiter keeps one token bucket per caller key.
type IPRateLimiter struct {
	// mu protects concurrent access to the limits map.
	mu sync.RWMutex

	// limits maps a caller key to its bucket.
	limits map[string]*rate.Limiter

	// r is the refill rate in events per second.
	r rate.Limit

	// b is the bucket size, the largest burst a caller may spend at once.
	b int

	stop     chan struct{}
	stopOnce sync.Once

	logger zerolog.Logger
}

// NewIPRateLimiter creates a limiter refilling at r with burst b and starts its janitor.
// The name only tags log entries.
func NewIPRateLimiter(name string, r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
		logger: logx.Component("limiter").With().Str("limiter", name).Logger(),
	}

	go i.cleanUpVisitors()

	return i
}

// PerMinute converts a per-minute cap into a limiter rate and burst.
func PerMinute(n int) (rate.Limit, int) {
	return rate.Every(time.Minute / time.Duration(n)), n
}

// PerSecond converts a per-second cap into a limiter rate and burst.
func PerSecond(n int) (rate.Limit, int) {
	return rate.Limit(n), n
}

// GetLimiter returns the bucket for key, creating it on first use.
func (i *IPRateLimiter) GetLimiter(key string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[key]
	i.mu.RUnlock()

	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists = i.limits[key]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[key] = limiter
	}
	return limiter
}

// Allow spends one token from the bucket of key.
func (i *IPRateLimiter) Allow(key string) bool {
	return i.GetLimiter(key).Allow()
}

// Stop terminates the janitor goroutine. It is safe to call more than once.
func (i *IPRateLimiter) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

// cleanUpVisitors periodically removes buckets that are full again, i.e. callers
// that have been idle long enough to regain their whole burst.
func (i *IPRateLimiter) cleanUpVisitors() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-i.stop:
			return
		case now := <-ticker.C:
			i.mu.Lock()
			removed := 0
			for key, limiter := range i.limits {
				if limiter.TokensAt(now) >= float64(limiter.Burst()) {
					delete(i.limits, key)
					removed++
				}
			}
			remaining := len(i.limits)
			i.mu.Unlock()

			i.logger.Debug().
				Int("removed", removed).
				Int("remaining", remaining).
				Msg("Rate limiter cleanup finished.")
		}
	}
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := ClientIP(r)
		limiter := i.GetLimiter(key)

		if !limiter.Allow() {
			i.logger.Warn().Str("remote_ip", logx.AnonymizeIP(key)).Str("path", r.URL.Path).Msg("Rate limit exceeded.")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(limiter)))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the caller key for r. chi's RealIP middleware, when installed,
// has already replaced RemoteAddr with the forwarded address.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}

func retryAfterSeconds(l *rate.Limiter) int {
	if l.Limit() <= 0 {
		return 1
	}
	return int(math.Ceil(1 / float64(l.Limit())))
}
