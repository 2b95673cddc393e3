package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvest/config"
	"github.com/use-agent/harvest/models"
	"golang.org/x/time/rate"
)

// limiterPool hands out one token bucket per caller identity and
// forgets identities that have been quiet for an hour.
type limiterPool struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rps     rate.Limit
	burst   int
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLimiterPool(cfg config.RateLimitConfig) *limiterPool {
	p := &limiterPool{
		buckets: make(map[string]*bucket),
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
	}
	go p.evictLoop()
	return p
}

// allow reports whether identity may make a request right now. First
// sight of an identity creates its bucket.
func (p *limiterPool) allow(identity string) bool {
	p.mu.Lock()
	b, ok := p.buckets[identity]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(p.rps, p.burst)}
		p.buckets[identity] = b
	}
	b.lastSeen = time.Now()
	p.mu.Unlock()

	return b.lim.Allow()
}

// evictLoop drops identities idle for an hour so the bucket map cannot
// grow without bound.
func (p *limiterPool) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		p.mu.Lock()
		for id, b := range p.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(p.buckets, id)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit returns per-identity token-bucket limiting. The identity is
// the authenticated API key when Auth ran earlier in the chain, the
// client IP otherwise.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	pool := newLimiterPool(cfg)

	return func(c *gin.Context) {
		identity := c.GetString(ctxAPIKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !pool.allow(identity) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded",
				},
			})
			return
		}
		c.Next()
	}
}
