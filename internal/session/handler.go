package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/damins0406/lets-study-now/internal/auth"
	"github.com/damins0406/lets-study-now/pkg/httputil"
)

type Handler struct {
	service   *Service
	log       *slog.Logger
	dbTimeout time.Duration
}

func NewHandler(service *Service, log *slog.Logger, dbTimeout time.Duration) *Handler {
	return &Handler{service, log, dbTimeout}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/active", httputil.Handler(h.HandleActive, h.log))
	r.Get("/", httputil.Handler(h.HandleRecent, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleActive returns the caller's active session, or 204 if none
func (h *Handler) HandleActive(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	sess, err := h.service.Active(ctx, memberID)
	if err != nil {
		return httputil.Internal(err)
	}
	if sess == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	return httputil.RespondJSON(w, http.StatusOK, sess)
}

// HandleRecent lists the caller's past sessions, newest first
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	sessions, err := h.service.Recent(ctx, memberID, limit, offset)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return httputil.NotFound("No sessions found")
		}
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}
