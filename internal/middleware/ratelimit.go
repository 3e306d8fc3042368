package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter is a sliding-window limiter backed by Redis sorted sets. It is
// shared by the HTTP middleware (keyed by client IP) and the chat gateway
// (keyed by JID).
type RateLimiter struct {
	client    redis.Cmdable
	maxReqs   int
	windowSec int
	prefix    string
}

// NewRateLimiter creates a rate limiter that allows maxReqs per windowSec
// seconds for every key under prefix, e.g. "ratelimit:ask:".
func NewRateLimiter(client redis.Cmdable, prefix string, maxReqs, windowSec int) *RateLimiter {
	return &RateLimiter{client: client, maxReqs: maxReqs, windowSec: windowSec, prefix: prefix}
}

// Window is the limiter window, used for Retry-After.
func (rl *RateLimiter) Window() time.Duration {
	return time.Duration(rl.windowSec) * time.Second
}

// Middleware enforces the limit per client IP. On Redis errors it fails
// open.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed, err := rl.Allow(r.Context(), ip)
		if err != nil {
			slog.Warn("rate limiter: redis error, failing open", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(rl.windowSec))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Allow records one hit for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = rl.prefix + key
	now := time.Now()
	windowStart := float64(now.Add(-rl.Window()).UnixMilli())
	member := strconv.FormatInt(now.UnixNano(), 10)
	score := float64(now.UnixMilli())

	pipe := rl.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%f", windowStart))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
	pipe.Expire(ctx, key, rl.Window()+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	return countCmd.Val() < int64(rl.maxReqs), nil
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For is set by the trusted reverse proxy.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
