package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	resp "content-api/internal/transport/http/response"
)

// bucketIdle is how long an address keeps its bucket without sending requests.
const bucketIdle = 10 * time.Minute

// RateLimitPerIP keeps one token bucket per client address.
func RateLimitPerIP(rps rate.Limit, burst int) gin.HandlerFunc {
	lims := newIPLimiter(rps, burst, bucketIdle, time.Now)
	return func(c *gin.Context) {
		if lims.allow(c.ClientIP()) {
			c.Next()
			return
		}
		resp.Abort(c, http.StatusTooManyRequests, "too many requests")
	}
}

type visitor struct {
	lim  *rate.Limiter
	seen time.Time
}

// ipLimiter drops buckets idle for longer than idle, checked at most once per idle period.
type ipLimiter struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newIPLimiter(rps rate.Limit, burst int, idle time.Duration, now func() time.Time) *ipLimiter {
	return &ipLimiter{rps: rps, burst: burst, idle: idle, now: now, visitors: map[string]*visitor{}, lastSweep: now()}
}

func (l *ipLimiter) allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		for k, v := range l.visitors {
			if now.Sub(v.seen) >= l.idle {
				delete(l.visitors, k)
			}
		}
		l.lastSweep = now
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{lim: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.seen = now
	l.mu.Unlock()
	return v.lim.AllowN(now, 1)
}
