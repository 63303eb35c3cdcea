package waitlist

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/archetype/origin-gateway/internal/domain"
	"github.com/archetype/origin-gateway/internal/pkg/logger"
	"github.com/archetype/origin-gateway/internal/ratelimit"
)

// Messages returned to registrants.
const (
	msgJoined    = "Protocol initiated. You are in the queue."
	msgAlready   = "You are already in the queue."
	devModeNote  = "Database not configured - development mode"
)

// Service implements the waitlist admission and review logic. It coordinates
// the rate limiter, validation, the believer repository, and notification
// side effects. All methods are safe for concurrent use; the monotonic
// queue-position guarantee comes from the repository, not from any in-process
// coordination here.
type Service struct {
	repo     Repository        // nil → development mode (no store)
	limiter  ratelimit.Limiter // nil → no rate limiting
	notifier Notifier          // nil → notifications skipped
	recent   int
}

// NewService creates the waitlist service. Any dependency may be nil;
// admission then degrades per the fail-open policy instead of refusing to
// serve.
func NewService(repo Repository, limiter ratelimit.Limiter, notifier Notifier, recentLimit int) *Service {
	if recentLimit <= 0 {
		recentLimit = 10
	}
	return &Service{repo: repo, limiter: limiter, notifier: notifier, recent: recentLimit}
}

// JoinInput carries a join request plus caller provenance.
type JoinInput struct {
	Email          string
	ReferralSource string
	IP             string
	UserAgent      string
	Referer        string
}

// JoinResult is the outcome of a successful admission.
type JoinResult struct {
	Position      int64
	AlreadyExists bool
	Message       string
	// Note is non-empty only for the non-authoritative development-mode
	// fallback, so callers can tell a placeholder position from a real one.
	Note string
}

// Join runs the admission pipeline: rate limit → validate → normalize →
// dedup → insert → notify.
//
// Error contract: ErrRateLimited when the quota is exceeded,
// *ValidationError for bad input (both with zero side effects), and a
// wrapped repository error when the insert fails. A rate-limiter backend
// failure is not an error: admission fails open with a logged warning.
func (s *Service) Join(ctx context.Context, in JoinInput) (*JoinResult, error) {
	if s.limiter != nil {
		d, err := s.limiter.Allow(ctx, in.IP)
		switch {
		case err != nil:
			// Fail open: availability beats strict quota enforcement on the
			// public path.
			logger.Warn("rate limiter unavailable, failing open",
				"ip", in.IP, "error", err.Error())
		case !d.Allowed:
			return nil, ErrRateLimited
		}
	}

	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateReferralSource(in.ReferralSource); err != nil {
		return nil, err
	}

	if s.repo == nil {
		return s.devFallback(email), nil
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		// Idempotent: same position, no new entry, no duplicate notification.
		return &JoinResult{
			Position:      existing.QueuePosition,
			AlreadyExists: true,
			Message:       msgAlready,
		}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		// Store unreachable. Keep the public flow alive with a placeholder
		// rather than surfacing an outage to the landing page.
		logger.Warn("dedup check failed, serving development fallback",
			"email", email, "error", err.Error())
		return s.devFallback(email), nil
	}

	b := &domain.Believer{
		Email:          email,
		IPAddress:      in.IP,
		UserAgent:      in.UserAgent,
		ClearanceLevel: 0,
		Status:         domain.BelieverPending,
		Metadata: map[string]interface{}{
			"signupTimestamp": time.Now().UTC().Format(time.RFC3339),
			"source":          sourceOrDirect(in.Referer),
		},
	}
	if in.ReferralSource != "" {
		src := in.ReferralSource
		b.ReferralSource = &src
	}

	created, err := s.repo.Insert(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("insert believer: %w", err)
	}

	logger.Info("believer admitted",
		"email", created.Email,
		"position", fmt.Sprintf("%d", created.QueuePosition),
		"ip", logger.RedactIP(in.IP))

	if s.notifier != nil {
		s.notifier.SendConfirmation(created.Email, created.QueuePosition)
		s.notifier.NotifyOperator("New Waitlist Signup",
			fmt.Sprintf("New believer joined the queue:\n\nEmail: %s\nPosition: #%d",
				created.Email, created.QueuePosition))
	}

	return &JoinResult{
		Position: created.QueuePosition,
		Message:  msgJoined,
	}, nil
}

// devFallback produces the non-authoritative placeholder admission used when
// no store is reachable. The Note field and log line make it distinguishable
// from a real admission.
func (s *Service) devFallback(email string) *JoinResult {
	logger.Info("waitlist signup (development mode, not persisted)", "email", email)
	return &JoinResult{
		Position: int64(rand.Intn(100) + 1),
		Message:  msgJoined,
		Note:     devModeNote,
	}
}

func sourceOrDirect(referer string) string {
	if referer == "" {
		return "direct"
	}
	return referer
}

// Count returns the public total-signups figure. Backend unavailability
// degrades to a deterministic mock count with a note, never an error.
func (s *Service) Count(ctx context.Context) (total int64, note string) {
	if s.repo == nil {
		return 42, devModeNote
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		logger.Warn("waitlist count failed, serving fallback", "error", err.Error())
		return 42, devModeNote
	}
	return n, ""
}

// Stats returns the reviewer read path: total, per-status counts, and the
// most-recent signups. Authorization is the caller's job (API layer); this
// method assumes an admin. Backend unavailability degrades to a
// deterministic fallback shape.
func (s *Service) Stats(ctx context.Context) *domain.WaitlistStats {
	fallback := &domain.WaitlistStats{
		TotalCount:    42,
		PendingCount:  35,
		ApprovedCount: 7,
		RecentSignups: []domain.BelieverSummary{},
	}
	if s.repo == nil {
		return fallback
	}
	stats, err := s.repo.Stats(ctx, s.recent)
	if err != nil {
		logger.Warn("waitlist stats failed, serving fallback", "error", err.Error())
		return fallback
	}
	if stats.RecentSignups == nil {
		stats.RecentSignups = []domain.BelieverSummary{}
	}
	return stats
}

// UpdateStatus sets a believer's review status. Only the status field is
// ever touched; queue position, email, and timestamps are immutable.
// Authorization is the caller's job (API layer).
func (s *Service) UpdateStatus(ctx context.Context, believerID string, status domain.BelieverStatus) error {
	if !domain.ValidBelieverStatus(status) {
		return ErrInvalidStatus
	}
	if believerID == "" {
		return &ValidationError{Reason: "believerId is required"}
	}
	if s.repo == nil {
		// Development mode: accept and drop, matching the admission path.
		logger.Info("status update (development mode, not persisted)",
			"believer_id", believerID, "status", string(status))
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, believerID, status); err != nil {
		return err
	}
	logger.Info("believer status updated", "believer_id", believerID, "status", string(status))
	return nil
}
