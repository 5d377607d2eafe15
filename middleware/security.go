package middleware

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"servicesync-server/config"
)

const limiterIdleTTL = time.Hour

// RateLimiter stores token buckets per client key
type RateLimiter struct {
	limiters    map[string]*rate.Limiter
	lastSeen    map[string]time.Time
	lastCleanup time.Time
	mutex       sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		lastSeen:    make(map[string]time.Time),
		lastCleanup: time.Now(),
	}
}

// GetLimiterWithConfig returns the limiter for key, creating it with the
// given limits on first use. Idle limiters are swept as a side effect.
func (rl *RateLimiter) GetLimiterWithConfig(key string, limit rate.Limit, burst int) *rate.Limiter {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	if now.Sub(rl.lastCleanup) > limiterIdleTTL/6 {
		rl.cleanupLocked(now)
	}

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(limit, burst)
		rl.limiters[key] = limiter
	}
	rl.lastSeen[key] = now
	return limiter
}

// Cleanup removes limiters idle for more than an hour
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	rl.cleanupLocked(time.Now())
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	for key, t := range rl.lastSeen {
		if now.Sub(t) > limiterIdleTTL {
			delete(rl.limiters, key)
			delete(rl.lastSeen, key)
		}
	}
	rl.lastCleanup = now
}

func (rl *RateLimiter) size() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.limiters)
}

// RateLimitMiddleware limits each client per route.
func RateLimitMiddleware(rl *RateLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	return limitBy(rl, "api", perMinute(cfg.RequestsPerMinute), cfg.Burst, 60)
}

// AuthRateLimitMiddleware applies the stricter credential-endpoint limits.
func AuthRateLimitMiddleware(rl *RateLimiter, cfg config.RateLimitConfig) gin.HandlerFunc {
	return limitBy(rl, "auth", perMinute(cfg.AuthPerMinute), cfg.AuthBurst, 300)
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

func limitBy(rl *RateLimiter, scope string, limit rate.Limit, burst int, retryAfter int) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		clientIP := c.ClientIP()
		limiter := rl.GetLimiterWithConfig(scope+"|"+path+"|"+clientIP, limit, burst)

		if !limiter.Allow() {
			log.Printf("🚫 Rate limit exceeded for %s %s from %s", c.Request.Method, path, clientIP)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"message":     "Too many requests. Please try again later.",
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'; img-src 'self' data: https:;")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Next()
	}
}

// CORSMiddleware allows the configured frontend origins to send cookies.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	})
}

// InputValidationMiddleware rejects oversized bodies and unexpected content types
func InputValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > 10*1024*1024 {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"success": false,
				"message": "Request body exceeds maximum size limit",
			})
			return
		}

		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if c.Request.ContentLength == 0 {
				break
			}
			contentType := c.GetHeader("Content-Type")
			if !strings.Contains(contentType, "application/json") &&
				!strings.Contains(contentType, "multipart/form-data") &&
				!strings.Contains(contentType, "application/x-www-form-urlencoded") {
				c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{
					"success": false,
					"message": "Content-Type must be application/json, multipart/form-data, or application/x-www-form-urlencoded",
				})
				return
			}
		}
		c.Next()
	}
}

// AuditLogMiddleware logs every request with its outcome
func AuditLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		if status >= 400 {
			log.Printf("⚠️ AUDIT: %s %s from %s returned %d in %v", c.Request.Method, c.Request.URL.Path, c.ClientIP(), status, duration)
		} else {
			log.Printf("✅ AUDIT: %s %s from %s returned %d in %v", c.Request.Method, c.Request.URL.Path, c.ClientIP(), status, duration)
		}
	}
}
