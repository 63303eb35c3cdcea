package domain

import "time"

// TelemetryEventType enumerates the accepted analytics event kinds.
type TelemetryEventType string

const (
	TelemetryPageView     TelemetryEventType = "page_view"
	TelemetrySessionStart TelemetryEventType = "session_start"
	TelemetrySessionEnd   TelemetryEventType = "session_end"
	TelemetryButtonClick  TelemetryEventType = "button_click"
	TelemetryScrollDepth  TelemetryEventType = "scroll_depth"
	TelemetryTimeOnPage   TelemetryEventType = "time_on_page"
	TelemetryError        TelemetryEventType = "error"
	TelemetryCustom       TelemetryEventType = "custom"
)

// ValidTelemetryEventType reports whether t is an accepted event kind.
func ValidTelemetryEventType(t TelemetryEventType) bool {
	switch t {
	case TelemetryPageView, TelemetrySessionStart, TelemetrySessionEnd,
		TelemetryButtonClick, TelemetryScrollDepth, TelemetryTimeOnPage,
		TelemetryError, TelemetryCustom:
		return true
	}
	return false
}

// TelemetryEvent is an immutable, best-effort analytics fact. Events are
// write-once; a failure to persist one must never affect any other operation.
type TelemetryEvent struct {
	ID        string                 `json:"id" db:"id"`
	EventType TelemetryEventType     `json:"event_type" db:"event_type"`
	SessionID *string                `json:"session_id" db:"session_id"`
	IPAddress string                 `json:"ip_address" db:"ip_address"`
	UserAgent string                 `json:"user_agent" db:"user_agent"`
	PagePath  *string                `json:"page_path" db:"page_path"`
	Referrer  *string                `json:"referrer" db:"referrer"`
	Metadata  map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}
