package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// SetRedisClient подключает общий клиент приложения; без него лимитер
// работает в режиме fail-open.
func SetRedisClient(rdb *redis.Client) {
	redisClient = rdb
}

// RedisRateLimit - фиксированное окно на Redis INCR/EXPIRE.
// Ключ rl:<окно>:<идентификатор>; авторизованные считаются по user_id,
// остальные по IP.
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if redisClient == nil {
			c.Next()
			return
		}

		ident := c.ClientIP()
		if uid, ok := c.Get("user_id"); ok {
			if id, ok := uid.(int64); ok {
				ident = "u" + strconv.FormatInt(id, 10)
			}
		}
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
		ctx := context.Background()

		val, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			// редис недоступен - пропускаем, но помечаем
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if val == 1 {
			redisClient.Expire(ctx, key, window)
		}

		if val > int64(maxRequests) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "code": "RATE_LIMITED"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
