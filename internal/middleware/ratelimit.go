package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/s1natex/taskmanager-api/internal/apperr"
	"github.com/s1natex/taskmanager-api/internal/ratelimit"
)

const tooManyRequests = "Too many requests, please try again later"

// RateLimitMiddleware applies one process-wide limiter to every request.
func RateLimitMiddleware(l *rate.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			retry := time.Second
			if l.Limit() > 0 {
				retry = time.Duration(float64(time.Second) / float64(l.Limit()))
			}
			tooMany(w, retry)
		})
	}
}

func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// KeyedLimiter decides per key, e.g. per client address.
type KeyedLimiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// KeyedRateLimitMiddleware throttles each key separately. Limiter errors are
// logged and the request is let through.
func KeyedRateLimitMiddleware(l KeyedLimiter, key func(*http.Request) string, logger *slog.Logger) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if key == nil {
		key = ClientHost
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := l.Allow(r.Context(), key(r))
			if err != nil {
				if logger != nil {
					logger.Warn("ratelimit_unavailable",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !d.Allowed {
				tooMany(w, d.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientHost keys requests by remote host, ignoring the source port.
func ClientHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// tooMany writes 429 with Retry-After rounded up to whole seconds.
func tooMany(w http.ResponseWriter, retry time.Duration) {
	secs := int(math.Ceil(retry.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	apperr.WriteMessage(w, http.StatusTooManyRequests, tooManyRequests)
}
