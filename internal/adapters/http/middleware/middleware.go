package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/csrf"
)

// visitorIdle is how long a client may stay quiet before its bucket is dropped.
const visitorIdle = 5 * time.Minute

// RateLimiter is a per-client token bucket holding at most burst tokens.
// Buckets refill continuously at burst tokens per interval.
type RateLimiter struct {
	burst    float64
	perToken time.Duration
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter allows rate requests per interval per client, in bursts of up to rate.
// Idle buckets are swept every minute until ctx is done.
// POST: rate <= 0 is treated as 1
func NewRateLimiter(ctx context.Context, rate int, interval time.Duration) *RateLimiter {
	rate = max(rate, 1)
	rl := &RateLimiter{
		burst:    float64(rate),
		perToken: interval / time.Duration(rate),
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
	go rl.sweep(ctx, time.Minute)
	return rl
}

func (rl *RateLimiter) sweep(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		cutoff := rl.now().Add(-visitorIdle)
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if b.last.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow takes one token from key's bucket.
// PRE: key is non-empty
// POST: Returns false, taking nothing, when the bucket is empty
func (rl *RateLimiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

// take is Allow that also reports how long until the next token.
func (rl *RateLimiter) take(key string) (bool, time.Duration) {
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, found := rl.buckets[key]
	if !found {
		b = &bucket{tokens: rl.burst, last: now}
		rl.buckets[key] = b
	} else if rl.perToken > 0 {
		b.tokens = min(rl.burst, b.tokens+float64(now.Sub(b.last))/float64(rl.perToken))
		b.last = now
	}
	if b.tokens < 1 {
		return false, time.Duration((1 - b.tokens) * float64(rl.perToken))
	}
	b.tokens--
	return true, 0
}

// RateLimit rejects clients that exceed limiter with 429 and a Retry-After header.
func RateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if ok, wait := limiter.take(ip); !ok {
				slog.Warn("rate_limit_exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the request's remote host without the port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SecurityHeaders adds OWASP recommended headers.
// Photos are proxied through /photo, so images only load from 'self'.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; font-src https://fonts.gstatic.com; script-src 'self' 'unsafe-inline'; img-src 'self'; connect-src 'self'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// CSRF returns a handler that protects form posts against CSRF attacks.
// authKey must be 32 bytes. JSON API requests (Content-Type: application/json) are exempt.
func CSRF(authKey []byte, secure bool, trustedOrigins []string) func(http.Handler) http.Handler {
	csrfProtect := csrf.Protect(
		authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.TrustedOrigins(trustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reason := "unknown"
			if err := csrf.FailureReason(r); err != nil {
				reason = err.Error()
			}
			slog.Warn("csrf_rejected", "path", r.URL.Path, "reason", reason)
			http.Error(w, "Forbidden", http.StatusForbidden)
		})),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
				next.ServeHTTP(w, r)
				return
			}
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			csrfProtect(next).ServeHTTP(w, r)
		})
	}
}

// Recover turns a handler panic into a 500 and logs it.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				slog.Error("handler_panic", "path", r.URL.Path, "panic", v)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Chain wraps h with middlewares; the last one listed runs first.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for _, m := range middlewares {
		h = m(h)
	}
	return h
}
