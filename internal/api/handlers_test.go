package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archetype/origin-gateway/internal/api"
	"github.com/archetype/origin-gateway/internal/config"
	"github.com/archetype/origin-gateway/internal/domain"
	"github.com/archetype/origin-gateway/internal/ratelimit"
	"github.com/archetype/origin-gateway/internal/service/telemetry"
	"github.com/archetype/origin-gateway/internal/service/waitlist"
)

// memRepo is an in-memory waitlist.Repository for handler tests.
type memRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Believer
	nextPos int64
}

func newMemRepo() *memRepo {
	return &memRepo{byEmail: make(map[string]*domain.Believer)}
}

func (m *memRepo) FindByEmail(_ context.Context, email string) (*domain.Believer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.byEmail[email]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, waitlist.ErrNotFound
}

func (m *memRepo) Insert(_ context.Context, b *domain.Believer) (*domain.Believer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[b.Email]; ok {
		return nil, waitlist.ErrDuplicate
	}
	m.nextPos++
	cp := *b
	cp.ID = "test-id"
	cp.QueuePosition = m.nextPos
	cp.CreatedAt = time.Now()
	m.byEmail[cp.Email] = &cp
	out := cp
	return &out, nil
}

func (m *memRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byEmail)), nil
}

func (m *memRepo) Stats(_ context.Context, _ int) (*domain.WaitlistStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.WaitlistStats{
		TotalCount:    int64(len(m.byEmail)),
		PendingCount:  int64(len(m.byEmail)),
		RecentSignups: []domain.BelieverSummary{},
	}, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id string, status domain.BelieverStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.byEmail {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return waitlist.ErrNotFound
}

type fakeLimiter struct {
	allow bool
	err   error
}

func (f *fakeLimiter) Allow(_ context.Context, _ string) (ratelimit.Decision, error) {
	if f.err != nil {
		return ratelimit.Decision{}, f.err
	}
	return ratelimit.Decision{Allowed: f.allow, RetryAfter: 30 * time.Second}, nil
}

func newTestServer(t *testing.T, repo waitlist.Repository, admissionLimiter, telemetryLimiter ratelimit.Limiter) http.Handler {
	t.Helper()
	waitlistSvc := waitlist.NewService(repo, admissionLimiter, nil, 10)
	telemetrySvc := telemetry.NewService(nil)
	h := api.NewHandlers(waitlistSvc, telemetrySvc, nil, telemetryLimiter)
	cfg := config.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}}
	srv := api.NewServer(cfg, h, nil, api.NewHealthChecker(nil, nil, false))
	return srv.Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:51000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestJoinWaitlist(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	rec := postJSON(t, handler, "/api/waitlist", map[string]string{"email": "neo@matrix.io"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Protocol initiated. You are in the queue.", body["message"])
	assert.Equal(t, float64(1), body["position"])
	assert.NotContains(t, body, "note")
}

func TestJoinWaitlistIdempotent(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	postJSON(t, handler, "/api/waitlist", map[string]string{"email": "neo@matrix.io"})
	rec := postJSON(t, handler, "/api/waitlist", map[string]string{"email": "NEO@matrix.io"})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "You are already in the queue.", body["message"])
	assert.Equal(t, float64(1), body["position"])
	assert.Equal(t, true, body["alreadyExists"])
}

func TestJoinWaitlistValidation(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	rec := postJSON(t, handler, "/api/waitlist", map[string]string{"email": "trinity@mailinator.com"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Equal(t, "Temporary email addresses are not allowed", body["message"])
}

func TestJoinWaitlistMalformedBody(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/waitlist", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeBody(t, rec)["error"])
}

func TestJoinWaitlistRateLimited(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), &fakeLimiter{allow: false}, nil)

	rec := postJSON(t, handler, "/api/waitlist", map[string]string{"email": "neo@matrix.io"})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeBody(t, rec)["error"])
}

func TestGetWaitlistCount(t *testing.T) {
	repo := newMemRepo()
	handler := newTestServer(t, repo, nil, nil)

	postJSON(t, handler, "/api/waitlist", map[string]string{"email": "neo@matrix.io"})

	req := httptest.NewRequest(http.MethodGet, "/api/waitlist", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["totalCount"])
	assert.NotContains(t, body, "note")
}

func TestGetWaitlistCountDevFallback(t *testing.T) {
	handler := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/waitlist", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(42), body["totalCount"])
	assert.Equal(t, "Database not configured - development mode", body["note"])
}

func TestStatsRequiresAdmin(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/waitlist/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body["error"])
	// The rejection must not leak any queue data.
	assert.NotContains(t, body, "totalCount")
	assert.NotContains(t, body, "recentSignups")
}

func TestStatusUpdateRequiresAdmin(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	raw, _ := json.Marshal(map[string]string{"believerId": "test-id", "status": "approved"})
	req := httptest.NewRequest(http.MethodPut, "/api/waitlist/status", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeBody(t, rec)["error"])
}

func TestAdminRoutesInDevMode(t *testing.T) {
	t.Setenv("DEV_MODE", "true")
	repo := newMemRepo()
	handler := newTestServer(t, repo, nil, nil)

	postJSON(t, handler, "/api/waitlist", map[string]string{"email": "neo@matrix.io"})

	req := httptest.NewRequest(http.MethodGet, "/api/waitlist/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["totalCount"])
	assert.Equal(t, true, body["success"])

	raw, _ := json.Marshal(map[string]string{"believerId": "test-id", "status": "approved"})
	upd := httptest.NewRequest(http.MethodPut, "/api/waitlist/status", bytes.NewReader(raw))
	updRec := httptest.NewRecorder()
	handler.ServeHTTP(updRec, upd)
	require.Equal(t, http.StatusOK, updRec.Code)

	bad, _ := json.Marshal(map[string]string{"believerId": "test-id", "status": "ascended"})
	badReq := httptest.NewRequest(http.MethodPut, "/api/waitlist/status", bytes.NewReader(bad))
	badRec := httptest.NewRecorder()
	handler.ServeHTTP(badRec, badReq)
	require.Equal(t, http.StatusBadRequest, badRec.Code)

	noID, _ := json.Marshal(map[string]string{"status": "approved"})
	noIDReq := httptest.NewRequest(http.MethodPut, "/api/waitlist/status", bytes.NewReader(noID))
	noIDRec := httptest.NewRecorder()
	handler.ServeHTTP(noIDRec, noIDReq)
	require.Equal(t, http.StatusBadRequest, noIDRec.Code)
	noIDBody := decodeBody(t, noIDRec)
	assert.Equal(t, "VALIDATION_ERROR", noIDBody["error"])
	assert.Equal(t, "believerId is required", noIDBody["message"])
}

func TestTelemetryAccepted(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	rec := postJSON(t, handler, "/api/telemetry", map[string]interface{}{
		"eventType": "page_view",
		"pagePath":  "/alchemist",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "ignored")
	assert.NotContains(t, body, "dropped")
}

func TestTelemetryUnknownTypeIgnored(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	rec := postJSON(t, handler, "/api/telemetry", map[string]interface{}{
		"eventType": "mind_reading",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ignored"])
}

func TestTelemetryMalformedBodyAcknowledged(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/telemetry", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["ignored"])
}

func TestTelemetryOverQuotaDropped(t *testing.T) {
	handler := newTestServer(t, newMemRepo(), nil, &fakeLimiter{allow: false})

	rec := postJSON(t, handler, "/api/telemetry", map[string]interface{}{
		"eventType": "page_view",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["dropped"])
}

func TestHealthLiveness(t *testing.T) {
	handler := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", decodeBody(t, rec)["status"])
}

func TestHealthReportsUnconfiguredDeps(t *testing.T) {
	handler := newTestServer(t, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]interface{})
	db := checks["database"].(map[string]interface{})
	assert.Equal(t, "not configured", db["message"])
}
