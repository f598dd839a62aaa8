package middleware

import (
	"net/http"
	"sync"
	"time"

	"cotizador/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// idleTTL is how long an IP may stay silent before its limiter is dropped.
const idleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	mu       sync.Mutex
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limiters sync.Map // ip → *ipLimiter
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter allows rps requests per second per IP with the given burst.
// rps <= 0 disables limiting.
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &IPRateLimiter{rate: limit, burst: burst}
}

func (i *IPRateLimiter) allow(ip string, now time.Time) bool {
	v, _ := i.limiters.LoadOrStore(ip, &ipLimiter{limiter: rate.NewLimiter(i.rate, i.burst)})
	entry := v.(*ipLimiter)
	entry.mu.Lock()
	entry.lastSeen = now
	entry.mu.Unlock()
	return entry.limiter.AllowN(now, 1)
}

// RateLimit returns the gin middleware.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.allow(c.ClientIP(), time.Now()) {
			log.Warn().
				Str("request_id", c.GetString(RequestIDKey)).
				Str("ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Msg("rate limit exceeded")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

// Purge drops limiters idle for longer than idleTTL and returns how many.
func (i *IPRateLimiter) Purge(now time.Time) int {
	purged := 0
	i.limiters.Range(func(key, v any) bool {
		entry := v.(*ipLimiter)
		entry.mu.Lock()
		idle := now.Sub(entry.lastSeen) > idleTTL
		entry.mu.Unlock()
		if idle {
			i.limiters.Delete(key)
			purged++
		}
		return true
	})
	return purged
}

// RunPurge periodically evicts idle IPs until done is closed.
func (i *IPRateLimiter) RunPurge(done <-chan struct{}) {
	ticker := time.NewTicker(idleTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			if n := i.Purge(now); n > 0 {
				log.Debug().Int("purged", n).Msg("rate limiter entries purged")
			}
		}
	}
}
