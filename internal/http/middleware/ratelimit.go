// README: Fixed-window per-IP rate limit backed by Redis INCR/TTL/EXPIRE.
package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimit allows limit requests per client IP per window. Redis errors let
// the request through. A nil client disables the limit.
func RateLimit(client *redis.Client, name string, limit int, window time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || limit <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())

		// The counter and its remaining lifetime are read in one transaction; a
		// counter left without expiry gets one on the next hit.
		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		if err != nil {
			logger.Warn("rate limit unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		remaining := ttl.Val()
		if remaining <= 0 {
			if err := client.Expire(ctx, key, window).Err(); err != nil {
				logger.Warn("rate limit expire failed", "key", key, "error", err)
			}
			remaining = window
		}
		if incr.Val() > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(remaining.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Trop de demandes, veuillez réessayer plus tard"})
			return
		}
		c.Next()
	}
}
