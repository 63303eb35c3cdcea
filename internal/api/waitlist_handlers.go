package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/archetype/origin-gateway/internal/domain"
	"github.com/archetype/origin-gateway/internal/pkg/httputil"
	"github.com/archetype/origin-gateway/internal/service/waitlist"
)

type joinRequest struct {
	Email          string `json:"email"`
	ReferralSource string `json:"referralSource"`
}

type joinResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Position      int64  `json:"position"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
	Note          string `json:"note,omitempty"`
}

// JoinWaitlist handles POST /api/waitlist - public admission.
func (h *Handlers) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}

	result, err := h.waitlist.Join(r.Context(), waitlist.JoinInput{
		Email:          req.Email,
		ReferralSource: req.ReferralSource,
		IP:             clientIP(r),
		UserAgent:      r.UserAgent(),
		Referer:        r.Referer(),
	})
	if err != nil {
		if ve := waitlist.AsValidation(err); ve != nil {
			httputil.BadRequest(w, ve.Reason)
			return
		}
		if errors.Is(err, waitlist.ErrRateLimited) {
			httputil.TooManyRequests(w, "Too many signup attempts. Please try again later.")
			return
		}
		httputil.DatabaseError(w, err)
		return
	}

	httputil.OK(w, joinResponse{
		Success:       true,
		Message:       result.Message,
		Position:      result.Position,
		AlreadyExists: result.AlreadyExists,
		Note:          result.Note,
	})
}

// GetWaitlistCount handles GET /api/waitlist - public signup count.
func (h *Handlers) GetWaitlistCount(w http.ResponseWriter, r *http.Request) {
	total, note := h.waitlist.Count(r.Context())

	resp := map[string]interface{}{
		"success":    true,
		"totalCount": total,
	}
	if note != "" {
		resp["note"] = note
	}
	httputil.OK(w, resp)
}

// GetWaitlistStats handles GET /api/waitlist/stats - reviewer read path.
// Admin clearance is enforced by the route middleware.
func (h *Handlers) GetWaitlistStats(w http.ResponseWriter, r *http.Request) {
	stats := h.waitlist.Stats(r.Context())

	httputil.OK(w, map[string]interface{}{
		"success":       true,
		"totalCount":    stats.TotalCount,
		"pendingCount":  stats.PendingCount,
		"approvedCount": stats.ApprovedCount,
		"recentSignups": stats.RecentSignups,
	})
}

type statusUpdateRequest struct {
	BelieverID string `json:"believerId"`
	Status     string `json:"status"`
}

// UpdateBelieverStatus handles PUT /api/waitlist/status - reviewer decision.
func (h *Handlers) UpdateBelieverStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "Invalid request body")
		return
	}

	err := h.waitlist.UpdateStatus(r.Context(), req.BelieverID, domain.BelieverStatus(req.Status))
	if err != nil {
		if ve := waitlist.AsValidation(err); ve != nil {
			httputil.BadRequest(w, ve.Reason)
			return
		}
		switch {
		case errors.Is(err, waitlist.ErrInvalidStatus):
			httputil.BadRequest(w, "Invalid status")
		case errors.Is(err, waitlist.ErrNotFound):
			httputil.NotFound(w, "Believer not found")
		default:
			httputil.DatabaseError(w, err)
		}
		return
	}

	httputil.OK(w, map[string]interface{}{
		"success": true,
		"message": "Status updated",
	})
}
