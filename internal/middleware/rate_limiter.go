package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/Novip1906/tasks-api/internal/config"
	"github.com/Novip1906/tasks-api/pkg/logging"
)

type RateLimiter struct {
	rdb     *redis.Client
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRateLimiter connects to redis and builds a per-client-IP limiter.
func NewRateLimiter(ctx context.Context, log *slog.Logger, redisCfg *config.Redis, rateLimiterCfg *config.RateLimiter) (*RateLimiter, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Address,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cannot connect to redis: %w", err)
	}
	log.Info("Connected to Redis successfully")

	burst := rateLimiterCfg.Burst
	if burst < rateLimiterCfg.RPS {
		burst = rateLimiterCfg.RPS
	}

	return &RateLimiter{
		rdb:     rdb,
		limiter: redis_rate.NewLimiter(rdb),
		limit: redis_rate.Limit{
			Rate:   rateLimiterCfg.RPS,
			Burst:  burst,
			Period: time.Second,
		},
	}, nil
}

func (rl *RateLimiter) Middleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}

			key := fmt.Sprintf("rate_limit:%s", ip)

			res, err := rl.limiter.Allow(ctx, key, rl.limit)
			if err != nil {
				// fail open when redis is unavailable.
				log.Error("redis rate limiter error", logging.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Rate))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(res.ResetAfter.Seconds())))

			if res.Allowed == 0 {
				log.Warn("rate limit exceeded (redis)",
					slog.String("ip", ip),
					slog.Int("remaining", res.Remaining),
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"detail":"Request was throttled."}` + "\n"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) Close() error {
	return rl.rdb.Close()
}
