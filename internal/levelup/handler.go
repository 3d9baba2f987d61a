package levelup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
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
	r.Get("/me", httputil.Handler(h.HandleMyLevel, h.log))
	r.Get("/{memberID}", httputil.Handler(h.HandleMemberLevel, h.log))
}

// HandleMyLevel reports the caller's level progression
func (h *Handler) HandleMyLevel(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	info, err := h.service.Info(ctx, memberID)
	if err != nil {
		return mapLevelError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, info)
}

// HandleMemberLevel reports another member's level progression
func (h *Handler) HandleMemberLevel(w http.ResponseWriter, r *http.Request) error {
	memberID, err := httputil.ParseUUID(r, "memberID")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	info, err := h.service.Info(ctx, memberID)
	if err != nil {
		return mapLevelError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, info)
}

func mapLevelError(err error) error {
	if errors.Is(err, ErrMemberNotFound) {
		return httputil.NotFound("Member not found")
	}
	return httputil.Internal(err)
}
