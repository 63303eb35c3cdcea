package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/archetype/origin-gateway/internal/domain"
)

func TestTelemetryInsert(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	session := "sess-1"
	path := "/alchemist"
	mock.ExpectExec(`INSERT INTO telemetry_events`).
		WithArgs(sqlmock.AnyArg(), "page_view", "sess-1", "203.0.113.7", "agent",
			"/alchemist", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewTelemetryRepo(db)
	err := repo.Insert(context.Background(), &domain.TelemetryEvent{
		EventType: domain.TelemetryPageView,
		SessionID: &session,
		IPAddress: "203.0.113.7",
		UserAgent: "agent",
		PagePath:  &path,
		Metadata:  map[string]interface{}{"scroll": 0.4},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
