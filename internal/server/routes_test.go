package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/damins0406/lets-study-now/internal/auth"
	"github.com/damins0406/lets-study-now/internal/chat"
	"github.com/damins0406/lets-study-now/internal/checklist"
	"github.com/damins0406/lets-study-now/internal/groupstudy"
	"github.com/damins0406/lets-study-now/internal/levelup"
	"github.com/damins0406/lets-study-now/internal/member"
	"github.com/damins0406/lets-study-now/internal/openstudy"
	"github.com/damins0406/lets-study-now/internal/session"
	"github.com/damins0406/lets-study-now/internal/timer"
)

// newTestRouter wires the full route tree with handlers that never reach
// storage. Requests in these tests get rejected at decode or auth time.
func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authService := auth.NewService("test-secret", 15*time.Minute, 24*time.Hour)
	timeout := time.Second

	return NewRouter(RouterConfig{
		MemberHandler:    member.NewHandler(nil, authService, nil, log, timeout),
		TimerHandler:     timer.NewHandler(nil, log, timeout),
		SessionHandler:   session.NewHandler(nil, log, timeout),
		OpenStudyHandler: openstudy.NewHandler(nil, log, timeout),
		GroupHandler:     groupstudy.NewHandler(nil, log, timeout),
		ChecklistHandler: checklist.NewHandler(nil, log, timeout),
		ChatHandler:      chat.NewHandler(nil, nil, authService, log, timeout),
		LevelHandler:     levelup.NewHandler(nil, log, timeout),
		AuthService:      authService,
	})
}

func TestAuthRoutesRejectMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	paths := []string{
		"/api/auth/signup",
		"/api/auth/signin",
		"/api/auth/refresh",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{"))
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"), path)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/members/me", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
