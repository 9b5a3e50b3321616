package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter holds per-client token buckets with a periodic sweep of
// idle entries.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rate     rate.Limit
	burst    int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter builds a limiter allowing perSecond requests per
// client IP, with the given burst, and starts its idle-entry sweep.
func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	l := &IPRateLimiter{
		limiters: make(map[string]*clientLimiter),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
	go l.sweep()
	return l
}

func (l *IPRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.limiters[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

func (l *IPRateLimiter) sweep() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		l.mu.Lock()
		for ip, c := range l.limiters {
			if c.lastSeen.Before(cutoff) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Middleware returns a gin.HandlerFunc enforcing the per-client limit.
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.get(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, StandardResponse{
				Success: false,
				Error:   "rate limit exceeded",
				Code:    "RATE_LIMITED",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// Recovery turns an execution handler panic (e.g. a nil pipeline edge
// case) into a SystemError response instead of taking down the listener.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		c.JSON(http.StatusInternalServerError, StandardResponse{
			Success: false,
			Error:   "internal server error",
			Code:    "SYSTEM_ERROR",
		})
	})
}
