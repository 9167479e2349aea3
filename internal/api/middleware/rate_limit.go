package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/princeprakhar/travel-review-backend/internal/config"
	"github.com/princeprakhar/travel-review-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimitMiddleware limits requests per client IP and route. With REDIS_URL
// set, counters are shared across instances; otherwise they live in memory.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: time.Second,
		Limit:  int64(cfg.RateLimitRPS),
	}

	instance := limiter.New(newLimiterStore(cfg), rate, limiter.WithTrustForwardHeader(true))

	return mgin.NewMiddleware(instance, mgin.WithKeyGetter(func(c *gin.Context) string {
		return fmt.Sprintf("%s:%s", c.ClientIP(), c.FullPath())
	}))
}

func newLimiterStore(cfg *config.Config) limiter.Store {
	if cfg.RedisURL == "" {
		return memory.NewStore()
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithFields(logger.Fields{"error": err}).Warn("invalid REDIS_URL, using in-memory rate limiter")
		return memory.NewStore()
	}

	store, err := sredis.NewStoreWithOptions(redis.NewClient(opts), limiter.StoreOptions{
		Prefix:   "travel_review_limiter",
		MaxRetry: 3,
	})
	if err != nil {
		logger.WithFields(logger.Fields{"error": err}).Warn("redis rate limiter unavailable, using in-memory store")
		return memory.NewStore()
	}
	return store
}
