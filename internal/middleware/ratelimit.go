package middleware

import (
	"math"
	"net"
	"net/http"
	"path"
	"strconv"

	"auth-gateway/internal/handler"
	"auth-gateway/internal/service"
	"auth-gateway/pkg/errors"
	"auth-gateway/pkg/logger"
)

// RateLimit rejects callers over budget with 429. Only POST requests count.
// Limiter errors let the request through.
func RateLimit(limiter service.RateLimiter, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			route := path.Base(r.URL.Path)
			decision, err := limiter.Allow(r.Context(), route, clientIP(r))
			if err != nil {
				log.WithError(err).Warn("rate limit check failed")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))

			if !decision.Allowed {
				retry := int(math.Ceil(decision.ResetIn.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				reqLog := log.WithFields(map[string]interface{}{
					"route":      route,
					"request_id": GetRequestID(r.Context()),
				})
				handler.WriteError(w, failureMessage(route), errors.NewRateLimitError("too many requests"), false, reqLog)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP uses RemoteAddr, which chi's RealIP middleware has already
// rewritten from proxy headers
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// failureMessage matches the envelope message of the limited route
func failureMessage(route string) string {
	switch route {
	case "google", "kakao":
		return route + "_login_failed"
	}
	return route + "_failed"
}
