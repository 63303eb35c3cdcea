package telemetry_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/archetype/origin-gateway/internal/domain"
	"github.com/archetype/origin-gateway/internal/service/telemetry"
)

type memEvents struct {
	mu     sync.Mutex
	events []*domain.TelemetryEvent
	err    error
}

func (m *memEvents) Insert(_ context.Context, ev *domain.TelemetryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func TestRecordValidEvent(t *testing.T) {
	repo := &memEvents{}
	svc := telemetry.NewService(repo)

	ok := svc.Record(context.Background(), telemetry.Input{
		EventType: "page_view",
		SessionID: "sess-1",
		PagePath:  "/",
		IP:        "203.0.113.7",
	})
	if !ok {
		t.Fatal("valid event reported as ignored")
	}
	if len(repo.events) != 1 {
		t.Fatalf("stored %d events, want 1", len(repo.events))
	}
	if repo.events[0].EventType != domain.TelemetryPageView {
		t.Fatalf("stored type = %s", repo.events[0].EventType)
	}
}

func TestRecordIgnoresUnknownType(t *testing.T) {
	repo := &memEvents{}
	svc := telemetry.NewService(repo)

	if svc.Record(context.Background(), telemetry.Input{EventType: "keylogger"}) {
		t.Fatal("unknown event type was not ignored")
	}
	if len(repo.events) != 0 {
		t.Fatal("ignored event was stored")
	}
}

func TestRecordSwallowsStorageFailure(t *testing.T) {
	repo := &memEvents{err: fmt.Errorf("pq: connection refused")}
	svc := telemetry.NewService(repo)

	if !svc.Record(context.Background(), telemetry.Input{EventType: "button_click"}) {
		t.Fatal("storage failure surfaced to caller")
	}
}

func TestRecordWithoutStore(t *testing.T) {
	svc := telemetry.NewService(nil)
	if !svc.Record(context.Background(), telemetry.Input{EventType: "session_start"}) {
		t.Fatal("nil store should accept events")
	}
}
