package timer

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
	r.Get("/status", httputil.Handler(h.HandleStatus, h.log))
	r.Post("/toggle", httputil.Handler(h.HandleToggle, h.log))
	r.Post("/pomodoro/start", httputil.Handler(h.HandleStartPomodoro, h.log))
	r.Post("/pomodoro/stop", httputil.Handler(h.HandleStopPomodoro, h.log))
	r.Post("/pomodoro/status", httputil.Handler(h.HandleChangePomodoroStatus, h.log))
	r.Get("/study-time", httputil.Handler(h.HandleStudyTime, h.log))
	r.Get("/history", httputil.Handler(h.HandleHistory, h.log))
	r.Get("/pomodoro/setting", httputil.Handler(h.HandleGetSetting, h.log))
	r.Put("/pomodoro/setting", httputil.Handler(h.HandleSaveSetting, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleStatus returns the caller's current timer snapshot
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	status, err := h.service.Status(ctx, memberID)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, status)
}

// HandleToggle flips a basic-mode timer between studying and resting
func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	t, err := h.service.Toggle(ctx, memberID)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, t)
}

// HandleStartPomodoro switches the caller's timer into pomodoro mode
func (h *Handler) HandleStartPomodoro(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	t, setting, err := h.service.StartPomodoro(ctx, memberID)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"timer":   t,
		"setting": setting,
	})
}

// HandleStopPomodoro returns the caller's timer to basic mode
func (h *Handler) HandleStopPomodoro(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	t, err := h.service.StopPomodoro(ctx, memberID)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, t)
}

// HandleChangePomodoroStatus moves a pomodoro timer between phases
func (h *Handler) HandleChangePomodoroStatus(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(ChangeStatusRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}
	if req.Status != StatusStudying && req.Status != StatusResting {
		return httputil.BadRequest("Status must be STUDYING or RESTING")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	t, err := h.service.ChangePomodoroStatus(ctx, memberID, req.Status)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, t)
}

// HandleStudyTime reports lifetime and same-day accumulated seconds
func (h *Handler) HandleStudyTime(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.StudyTime(ctx, memberID)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleHistory lists the caller's daily aggregates for a date range
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	from, err := parseDateParam(r, "from", time.Now().AddDate(0, -1, 0))
	if err != nil {
		return httputil.BadRequest("Invalid from date, expected YYYY-MM-DD")
	}

	to, err := parseDateParam(r, "to", time.Now())
	if err != nil {
		return httputil.BadRequest("Invalid to date, expected YYYY-MM-DD")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	history, err := h.service.History(ctx, memberID, from, to)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"history": history,
	})
}

// HandleGetSetting returns the caller's pomodoro setting
func (h *Handler) HandleGetSetting(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	setting, err := h.service.Setting(ctx, memberID)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, setting)
}

// HandleSaveSetting creates or replaces the caller's pomodoro setting
func (h *Handler) HandleSaveSetting(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(SettingRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	setting, err := h.service.SaveSetting(ctx, memberID, req.StudyMinutes, req.RestMinutes)
	if err != nil {
		return mapTimerError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, setting)
}

func mapTimerError(err error) error {
	switch {
	case errors.Is(err, ErrTimerNotFound):
		return httputil.NotFound("No active timer")
	case errors.Is(err, ErrTimerExists):
		return httputil.Conflict("Timer already running")
	case errors.Is(err, ErrPomodoroMode):
		return httputil.BadRequest("Manual toggle is not allowed in pomodoro mode")
	case errors.Is(err, ErrBasicMode):
		return httputil.BadRequest("Timer is not in pomodoro mode")
	case errors.Is(err, ErrSettingMissing):
		return httputil.BadRequest("Pomodoro setting is required")
	case errors.Is(err, ErrInvalidMinutes):
		return httputil.BadRequest("Minutes must be between 1 and 120")
	default:
		return httputil.Internal(err)
	}
}

func parseDateParam(r *http.Request, name string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return time.Parse("2006-01-02", raw)
}
