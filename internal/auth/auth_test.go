package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/archetype/origin-gateway/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		Enabled:            true,
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
		AdminEmails:        []string{"Reviewer@archetype.io"},
		SessionSecret:      "0123456789abcdef0123456789abcdef",
		CookieName:         "origin_session",
		CookieMaxAge:       86400,
	}
}

func requestWithSession(t *testing.T, m *Manager, s *Session) *http.Request {
	t.Helper()
	id, err := generateToken()
	require.NoError(t, err)
	m.sessionMu.Lock()
	m.sessions[id] = s
	m.sessionMu.Unlock()

	r := httptest.NewRequest(http.MethodGet, "/api/waitlist/stats", nil)
	r.AddCookie(&http.Cookie{Name: m.config.CookieName, Value: id})
	return r
}

func TestAllowlistGrantsAdminClearance(t *testing.T) {
	m := NewManager(testAuthConfig(), "http://localhost:3001")

	// Allowlist entries are normalized at construction.
	assert.True(t, m.admins["reviewer@archetype.io"])
	assert.False(t, m.admins["stranger@archetype.io"])
}

func TestGetSessionExpiry(t *testing.T) {
	m := NewManager(testAuthConfig(), "http://localhost:3001")

	live := &Session{
		Email:          "reviewer@archetype.io",
		IsAdmin:        true,
		ClearanceLevel: ClearanceAdmin,
		CreatedAt:      time.Now(),
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	r := requestWithSession(t, m, live)
	got := m.GetSession(r)
	require.NotNil(t, got)
	assert.True(t, m.IsAdmin(r))
	assert.Equal(t, ClearanceAdmin, got.ClearanceLevel)

	expired := &Session{
		Email:     "reviewer@archetype.io",
		IsAdmin:   true,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	r2 := requestWithSession(t, m, expired)
	assert.Nil(t, m.GetSession(r2))
	assert.False(t, m.IsAuthenticated(r2))
}

func TestNonAdminSessionIsAuthenticatedButNotAdmin(t *testing.T) {
	m := NewManager(testAuthConfig(), "http://localhost:3001")

	s := &Session{
		Email:          "stranger@gmail.com",
		IsAdmin:        false,
		ClearanceLevel: ClearanceNone,
		CreatedAt:      time.Now(),
		ExpiresAt:      time.Now().Add(time.Hour),
	}
	r := requestWithSession(t, m, s)
	assert.True(t, m.IsAuthenticated(r))
	assert.False(t, m.IsAdmin(r))
}

func TestRequestWithoutCookieHasNoSession(t *testing.T) {
	m := NewManager(testAuthConfig(), "http://localhost:3001")
	r := httptest.NewRequest(http.MethodGet, "/api/waitlist/stats", nil)
	assert.Nil(t, m.GetSession(r))
}

func TestCleanupExpiredSessions(t *testing.T) {
	m := NewManager(testAuthConfig(), "http://localhost:3001")
	m.sessions["live"] = &Session{ExpiresAt: time.Now().Add(time.Hour)}
	m.sessions["dead"] = &Session{ExpiresAt: time.Now().Add(-time.Hour)}

	m.CleanupExpiredSessions()

	assert.Contains(t, m.sessions, "live")
	assert.NotContains(t, m.sessions, "dead")
}
