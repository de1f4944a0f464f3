package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/buildcontrol/backend/internal/config"
	"github.com/buildcontrol/backend/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const visitorTTL = 5 * time.Minute

// IPRateLimiter is the in-process token bucket used when Redis is not
// available.
type IPRateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rps       rate.Limit
	burst     int
	lastPrune time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPRateLimiter(requests int, window time.Duration) *IPRateLimiter {
	if requests < 1 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &IPRateLimiter{
		visitors:  make(map[string]*visitor),
		rps:       rate.Limit(float64(requests) / window.Seconds()),
		burst:     requests,
		lastPrune: time.Now(),
	}
}

// Allow reports whether ip may make a request now.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > time.Minute {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// RateLimiter limits requests per client IP with a fixed window in Redis,
// falling back to an in-process limiter when Redis is nil or failing.
func RateLimiter(redisClient *redis.Client, cfg *config.Config, log *zap.Logger) gin.HandlerFunc {
	local := NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitDuration)
	limit := strconv.Itoa(cfg.RateLimitRequests)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if redisClient != nil {
			ctx := c.Request.Context()
			key := fmt.Sprintf("rate_limit:%s", clientIP)

			count, err := redisClient.Incr(ctx, key).Result()
			if err == nil && count == 1 {
				err = redisClient.Expire(ctx, key, cfg.RateLimitDuration).Err()
			}
			if err == nil {
				c.Header("X-RateLimit-Limit", limit)
				if count > int64(cfg.RateLimitRequests) {
					ttl, _ := redisClient.TTL(ctx, key).Result()
					c.Header("X-RateLimit-Remaining", "0")
					c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(ttl).Unix(), 10))
					c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds())))
					response.Error(c, http.StatusTooManyRequests, "Too many requests")
					return
				}
				c.Header("X-RateLimit-Remaining", strconv.FormatInt(int64(cfg.RateLimitRequests)-count, 10))
				c.Next()
				return
			}
			log.Warn("redis rate limiter unavailable, using local limiter", zap.Error(err))
		}

		if !local.Allow(clientIP) {
			log.Warn("rate limit exceeded", zap.String("ip", clientIP), zap.String("path", c.Request.URL.Path))
			response.Error(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}
