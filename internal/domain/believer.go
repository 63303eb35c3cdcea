package domain

import (
	"time"
)

// BelieverStatus enumerates the review states of a waitlist entry.
type BelieverStatus string

const (
	BelieverPending  BelieverStatus = "pending"
	BelieverApproved BelieverStatus = "approved"
	BelieverRejected BelieverStatus = "rejected"
)

// ValidBelieverStatus reports whether s is a known review state.
func ValidBelieverStatus(s BelieverStatus) bool {
	switch s {
	case BelieverPending, BelieverApproved, BelieverRejected:
		return true
	}
	return false
}

// Believer represents one waitlist registrant.
//
// Email is stored lower-cased and is unique case-insensitively; it is the
// natural key for deduplication. QueuePosition is assigned exactly once by
// the database at insert time, increases monotonically with creation order,
// and is never reused or changed. Only Status is mutable after creation.
type Believer struct {
	ID             string                 `json:"id" db:"id"`
	Email          string                 `json:"email" db:"email"`
	IPAddress      string                 `json:"ip_address" db:"ip_address"`
	UserAgent      string                 `json:"user_agent" db:"user_agent"`
	ClearanceLevel int                    `json:"clearance_level" db:"clearance_level"`
	QueuePosition  int64                  `json:"queue_position" db:"queue_position"`
	Status         BelieverStatus         `json:"status" db:"status"`
	ReferralSource *string                `json:"referral_source" db:"referral_source"`
	Metadata       map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt      time.Time              `json:"created_at" db:"created_at"`
}

// BelieverSummary is the trimmed view of a believer exposed to reviewers
// (stats endpoint). It deliberately omits provenance and metadata.
type BelieverSummary struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	QueuePosition int64          `json:"queue_position"`
	Status        BelieverStatus `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
}

// WaitlistStats aggregates the review read path: total count, counts by
// status, and the most-recent signups (bounded, newest first).
type WaitlistStats struct {
	TotalCount    int64             `json:"totalCount"`
	PendingCount  int64             `json:"pendingCount"`
	ApprovedCount int64             `json:"approvedCount"`
	RecentSignups []BelieverSummary `json:"recentSignups"`
}
