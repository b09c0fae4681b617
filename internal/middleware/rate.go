package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"party-service/pkg/response"

	"github.com/redis/go-redis/v9"
)

func RateLimiter(rdb *redis.Client, limit int, window, blockDuration time.Duration, keyPrefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.Background()

			// Prefer userID if authenticated
			var clientID string
			if userID, ok := UserIDFromContext(r.Context()); ok && userID != "" {
				clientID = "uid:" + userID
			} else {
				ip := r.Header.Get("X-Forwarded-For")
				if ip == "" {
					ip = r.RemoteAddr
				}
				clientID = "ip:" + strings.Split(ip, ",")[0]
			}

			key := keyPrefix + ":" + clientID
			blockKey := key + ":blocked"

			blocked, _ := rdb.Get(ctx, blockKey).Result()
			if blocked == "1" {
				ttl, _ := rdb.TTL(ctx, blockKey).Result()
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests. Try again in "+ttl.String())
				return
			}

			count, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Fail open: don't block traffic if Redis is unavailable
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				rdb.Expire(ctx, key, window)
			}
			if count > int64(limit) {
				rdb.Set(ctx, blockKey, "1", blockDuration)
				response.Error(w, http.StatusTooManyRequests, "Too Many Requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
