// Package telemetry implements best-effort analytics ingest. Everything in
// this package swallows failure: an event that cannot be validated or stored
// is logged and dropped, never surfaced to the caller.
package telemetry

import (
	"context"

	"github.com/archetype/origin-gateway/internal/domain"
	"github.com/archetype/origin-gateway/internal/pkg/logger"
)

// Repository is the write-once store for telemetry events.
type Repository interface {
	Insert(ctx context.Context, ev *domain.TelemetryEvent) error
}

// Service records telemetry events. A nil repository is legal; events are
// then logged and discarded.
type Service struct {
	repo Repository
}

// NewService creates the telemetry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input is one analytics event as submitted by the frontend, plus caller
// provenance attached by the handler.
type Input struct {
	EventType string
	SessionID string
	PagePath  string
	Referrer  string
	Metadata  map[string]interface{}
	IP        string
	UserAgent string
}

// Record validates and persists one event. Returns false when the event was
// ignored (unknown type); persistence failures still return true because
// telemetry is fire-and-forget either way.
func (s *Service) Record(ctx context.Context, in Input) bool {
	et := domain.TelemetryEventType(in.EventType)
	if !domain.ValidTelemetryEventType(et) {
		return false
	}

	logger.Debug("telemetry event",
		"type", in.EventType, "path", in.PagePath)

	if s.repo == nil {
		return true
	}

	ev := &domain.TelemetryEvent{
		EventType: et,
		IPAddress: in.IP,
		UserAgent: in.UserAgent,
		Metadata:  in.Metadata,
	}
	if in.SessionID != "" {
		v := in.SessionID
		ev.SessionID = &v
	}
	if in.PagePath != "" {
		v := in.PagePath
		ev.PagePath = &v
	}
	if in.Referrer != "" {
		v := in.Referrer
		ev.Referrer = &v
	}

	if err := s.repo.Insert(ctx, ev); err != nil {
		logger.Warn("telemetry insert failed", "type", in.EventType, "error", err.Error())
	}
	return true
}
