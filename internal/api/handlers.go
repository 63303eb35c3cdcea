package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/archetype/origin-gateway/internal/pkg/httputil"
	"github.com/archetype/origin-gateway/internal/pkg/logger"
	"github.com/archetype/origin-gateway/internal/ratelimit"
	"github.com/archetype/origin-gateway/internal/service/telemetry"
	"github.com/archetype/origin-gateway/internal/service/waitlist"
)

// Handlers holds references to the services the HTTP layer fronts.
type Handlers struct {
	waitlist  *waitlist.Service
	telemetry *telemetry.Service

	// apiLimiter covers the whole /api surface; telemetryLimiter adds the
	// stricter per-IP quota on the analytics ingest endpoint. Either may be
	// nil, which disables that quota.
	apiLimiter       ratelimit.Limiter
	telemetryLimiter ratelimit.Limiter
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(waitlistSvc *waitlist.Service, telemetrySvc *telemetry.Service, apiLimiter, telemetryLimiter ratelimit.Limiter) *Handlers {
	return &Handlers{
		waitlist:         waitlistSvc,
		telemetry:        telemetrySvc,
		apiLimiter:       apiLimiter,
		telemetryLimiter: telemetryLimiter,
	}
}

// apiRateLimit enforces the coarse per-IP quota across /api. Limiter backend
// failures fail open; an exhausted quota returns 429 with Retry-After.
func (h *Handlers) apiRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiLimiter != nil {
			d, err := h.apiLimiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				logger.Warn("api rate limiter unavailable, failing open", "error", err.Error())
			} else if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(d.RetryAfter.Seconds())+1))
				httputil.TooManyRequests(w, "Too many requests. Please try again later.")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the caller address with any port stripped. middleware.RealIP
// has already folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
