package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/pregmed-safety-server/internal/domain"
)

// clientLimiter tracks one client's token bucket and its last use, so
// idle entries can be reaped.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies a per-client token bucket keyed by client IP.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
	ttl     time.Duration
}

// NewRateLimiter creates a rate limiter from configuration and starts
// the idle-client cleanup loop.
func NewRateLimiter(cfg domain.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		ttl:     cfg.ClientTTL,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) limiterFor(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[clientIP]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientIP] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ttl := rl.ttl
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-ttl)
		rl.mu.Lock()
		for ip, cl := range rl.clients {
			if cl.lastSeen.Before(cutoff) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Handler returns the gin middleware enforcing the limit. Rejected
// requests receive 429 with the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":          "Rate limit exceeded",
				"code":           domain.CodeRateLimit,
				"correlation_id": c.GetString("correlation_id"),
			})
			return
		}
		c.Next()
	}
}
