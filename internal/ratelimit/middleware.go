package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/wata-gateway/internal/common"
)

// Handler enforces a per-client rate limit in front of an endpoint. Limiter
// errors fail open: an unavailable Redis must not take checkout down.
type Handler struct {
	Limiter Limiter
	Window  time.Duration
	Max     int
	Key     func(*http.Request) string
	Logger  zerolog.Logger
}

// Middleware wraps next with rate limiting.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := h.key(r)
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Window, h.Max)
		if err != nil {
			h.Logger.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(h.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h Handler) key(r *http.Request) string {
	if h.Key != nil {
		return h.Key(r)
	}
	return common.Sha256Hex(common.ClientIP(r))
}
