package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// defaultRateLimit is requests per second per API key.
	defaultRateLimit = 1
	// defaultRateBurst is the bucket size per API key.
	defaultRateBurst = 60

	ctxKeyScopes = "scopes"
	ctxKeyAPIKey = "api_key"
)

// authMiddleware validates the X-API-Key header and stores the key's
// scopes on the request context.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-API-Key")
		if key == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}
		scopes, ok := s.keys[key]
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}
		c.Set(ctxKeyAPIKey, key)
		c.Set(ctxKeyScopes, scopes)
		c.Next()
	}
}

// requireScope rejects requests whose key lacks the given permission.
func (s *Server) requireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		scopes, _ := c.Get(ctxKeyScopes)
		granted, _ := scopes.([]string)
		for _, g := range granted {
			if g == scope {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing permission " + scope})
	}
}

// keyLimiters tracks a token bucket per API key.
type keyLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newKeyLimiters(rps rate.Limit, burst int) *keyLimiters {
	return &keyLimiters{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (k *keyLimiters) get(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.rps, k.burst)
		k.limiters[key] = l
	}
	return l
}

// rateLimitMiddleware enforces a per-key token bucket and documents it
// with the X-RateLimit-* headers.
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ctxKeyAPIKey)
		limiter := s.limiters.get(key)

		allowed := limiter.Allow()
		remaining := int(limiter.Tokens())
		if remaining < 0 {
			remaining = 0
		}
		reset := time.Now().Add(time.Duration(float64(time.Second) / float64(s.limiters.rps))).Unix()

		c.Header("X-RateLimit-Limit", strconv.Itoa(s.limiters.burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
