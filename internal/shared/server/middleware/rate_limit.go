package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/metrics"
	"student-dashboard/internal/shared/server/respond"
)

// Rate limit groups.
const (
	DefaultGroup = "DEFAULT"
	PollingGroup = "POLLING"
	UploadGroup  = "UPLOAD"
)

// RouteGroup buckets requests: page state and unread-count polling is
// cheap and frequent, CV uploads are expensive.
func RouteGroup(c *gin.Context) string {
	route := c.FullPath()
	switch c.Request.Method {
	case http.MethodGet:
		if route == "/api/v1/pages/:page" || route == "/api/v1/notifications/unread-count" {
			return PollingGroup
		}
	case http.MethodPost:
		if route == "/api/v1/cv" {
			return UploadGroup
		}
	}
	return DefaultGroup
}

// Limit is a token bucket refilled at PerSecond up to Burst tokens.
// A zero Limit lets everything through.
type Limit struct {
	PerSecond float64
	Burst     int
}

func (l Limit) unlimited() bool {
	return l.PerSecond <= 0 || l.Burst <= 0
}

// Limits maps a route group to its per-principal budget.
type Limits map[string]Limit

// DefaultLimits are the budgets used by the API router.
func DefaultLimits() Limits {
	return Limits{
		DefaultGroup: {PerSecond: 5, Burst: 20},
		PollingGroup: {PerSecond: 10, Burst: 30},
		UploadGroup:  {PerSecond: 0.2, Burst: 3},
	}
}

const (
	idleBucketTTL = 10 * time.Minute
	sweepEvery    = time.Minute
)

// RateLimiter keeps one bucket per principal and group. Buckets untouched
// for idleBucketTTL are dropped.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter constructs a limiter; now defaults to time.Now.
func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: make(map[string]*bucket), now: now}
}

// Take spends one token from key's bucket. When none is left it reports how
// long until the next one.
func (l *RateLimiter) Take(key string, lim Limit) (bool, time.Duration) {
	if l == nil || lim.unlimited() {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(lim.Burst), seen: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.seen).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(lim.Burst), b.tokens+elapsed*lim.PerSecond)
	}
	b.seen = now
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := (1 - b.tokens) / lim.PerSecond
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// Len reports the number of live buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepEvery {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.seen) > idleBucketTTL {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests over their group's budget with 429 and a
// Retry-After header. Requests are keyed by user id, or client IP when the
// route is public. groupFor nil puts everything in DefaultGroup.
func RateLimit(limits Limits, groupFor func(*gin.Context) string, limiter *RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		limiter = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		group := DefaultGroup
		if groupFor != nil {
			if g := strings.TrimSpace(groupFor(c)); g != "" {
				group = g
			}
		}
		lim, ok := limits[group]
		if !ok {
			c.Next()
			return
		}

		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = c.ClientIP()
		}
		allowed, wait := limiter.Take(principal+"|"+group, lim)
		if allowed {
			c.Next()
			return
		}

		metrics.IncRateLimited(group)
		if wait < time.Millisecond {
			wait = time.Second
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests", gin.H{
			"retryAfterMs": wait.Milliseconds(),
		})
	}
}
