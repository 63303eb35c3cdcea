package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/archetype/origin-gateway/internal/domain"
)

// TelemetryRepo implements telemetry.Repository against PostgreSQL.
// Events are write-once; there is deliberately no update or delete.
type TelemetryRepo struct{ db *sql.DB }

// NewTelemetryRepo creates a Postgres-backed telemetry repository.
func NewTelemetryRepo(db *sql.DB) *TelemetryRepo { return &TelemetryRepo{db: db} }

func (r *TelemetryRepo) Insert(ctx context.Context, ev *domain.TelemetryEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	metadata, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("encode event metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO telemetry_events
			(id, event_type, session_id, ip_address, user_agent,
			 page_path, referrer, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ev.ID, ev.EventType, ev.SessionID, ev.IPAddress, ev.UserAgent,
		ev.PagePath, ev.Referrer, metadata)
	if err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}
	return nil
}
