package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"time"

	"orgie/pkg/errors"
	"orgie/pkg/logger"
	"orgie/pkg/redis"
)

// RateLimit counts requests per client IP in a fixed window. A nil client
// disables limiting. Redis failures let the request through.
func RateLimit(client *redis.Client, limit int, window time.Duration, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if client == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := client.KeyBuilder.KeyAuthRateLimit(hashIP(ClientIP(r)))

			count, err := client.IncrWindow(ctx, key, window)
			if err != nil {
				log.WithError(err).Warn("Rate limit counter unavailable")
				next.ServeHTTP(w, r)
				return
			}

			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > limit {
				if ttl, err := client.TTL(ctx, key); err == nil && ttl > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				}
				writeErrorResponse(w, r, errors.NewRateLimitError("Too many requests, please try again later"), log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of RemoteAddr. Forwarding headers are only
// honoured when the router rewrites RemoteAddr from them, see TrustProxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}
