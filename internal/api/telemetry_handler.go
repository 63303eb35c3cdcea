package api

import (
	"encoding/json"
	"net/http"

	"github.com/archetype/origin-gateway/internal/pkg/httputil"
	"github.com/archetype/origin-gateway/internal/pkg/logger"
	"github.com/archetype/origin-gateway/internal/service/telemetry"
)

type telemetryRequest struct {
	EventType string                 `json:"eventType"`
	SessionID string                 `json:"sessionId"`
	PagePath  string                 `json:"pagePath"`
	Referrer  string                 `json:"referrer"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// RecordTelemetry handles POST /api/telemetry - best-effort analytics ingest.
// The contract is lenient: over-quota and unknown-type events are acknowledged
// with 200 and a marker field rather than an error, so a frontend beacon loop
// never sees a failure it would retry.
func (h *Handlers) RecordTelemetry(w http.ResponseWriter, r *http.Request) {
	var req telemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Malformed beacons are acknowledged, not rejected.
		httputil.OK(w, map[string]interface{}{"success": true, "ignored": true})
		return
	}

	if h.telemetryLimiter != nil {
		d, err := h.telemetryLimiter.Allow(r.Context(), clientIP(r))
		if err != nil {
			logger.Warn("telemetry rate limiter unavailable, failing open", "error", err.Error())
		} else if !d.Allowed {
			httputil.OK(w, map[string]interface{}{"success": true, "dropped": true})
			return
		}
	}

	recorded := h.telemetry.Record(r.Context(), telemetry.Input{
		EventType: req.EventType,
		SessionID: req.SessionID,
		PagePath:  req.PagePath,
		Referrer:  req.Referrer,
		Metadata:  req.Metadata,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if !recorded {
		httputil.OK(w, map[string]interface{}{"success": true, "ignored": true})
		return
	}

	httputil.OK(w, map[string]interface{}{"success": true})
}
