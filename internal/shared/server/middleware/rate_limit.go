package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tenant-validation/internal/shared/server/respond"
)

// Rate limit groups. Routes that reach OCR or face services are "external".
const (
	GroupDefault  = "default"
	GroupExternal = "external"
)

// Quota is a token bucket: Rate tokens per second, at most Burst stored.
type Quota struct {
	Rate  float64
	Burst int
}

func (q Quota) enabled() bool { return q.Rate > 0 && q.Burst > 0 }

// Limiter keeps one bucket per actor and group.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

func NewLimiter(now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{buckets: make(map[string]*bucket), now: now}
}

// Take consumes one token for key. When empty it returns how long until the
// next token is available.
func (l *Limiter) Take(key string, q Quota) (bool, time.Duration) {
	if l == nil || !q.enabled() {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(q.Burst), last: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(float64(q.Burst), b.tokens+elapsed*q.Rate)
		b.last = now
	}
	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := (1 - b.tokens) / q.Rate
	return false, time.Duration(math.Ceil(wait*1000)) * time.Millisecond
}

// ExternalGroup puts validation runs, enqueues and resummaries in
// GroupExternal.
func ExternalGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return GroupDefault
	}
	p := c.FullPath()
	if strings.HasSuffix(p, "/run") || strings.HasSuffix(p, "/enqueue") || strings.HasSuffix(p, "/resumen_full") {
		return GroupExternal
	}
	return GroupDefault
}

// RateLimit throttles per actor (or client IP when anonymous). Groups without
// a quota are not limited.
func RateLimit(limiter *Limiter, quotas map[string]Quota, groupFor func(*gin.Context) string) gin.HandlerFunc {
	if limiter == nil {
		limiter = NewLimiter(nil)
	}
	return func(c *gin.Context) {
		group := GroupDefault
		if groupFor != nil {
			group = groupFor(c)
		}
		q, ok := quotas[group]
		if !ok || !q.enabled() {
			c.Next()
			return
		}
		principal := ActorFromContext(c).ID
		if principal == "" {
			principal = c.ClientIP()
		}
		allowed, wait := limiter.Take(principal+"|"+group, q)
		if allowed {
			c.Next()
			return
		}
		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "demasiadas solicitudes, intenta más tarde")
	}
}
