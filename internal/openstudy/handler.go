package openstudy

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
	r.Get("/", httputil.Handler(h.HandleList, h.log))
	r.Post("/", httputil.Handler(h.HandleCreate, h.log))
	r.Get("/{roomID}", httputil.Handler(h.HandleGet, h.log))
	r.Post("/{roomID}/join", httputil.Handler(h.HandleJoin, h.log))
	r.Post("/{roomID}/leave", httputil.Handler(h.HandleLeave, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleCreate opens a new room with the caller as creator
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(CreateRoomRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}
	if req.Title == "" {
		return httputil.BadRequest("Title is required")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.Create(ctx, memberID, req)
	if err != nil {
		return mapRoomError(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, room)
}

// HandleList returns one page of joinable rooms
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) error {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	field := StudyField(r.URL.Query().Get("field"))

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.List(ctx, page, field)
	if err != nil {
		return mapRoomError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGet returns a single room
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.Get(ctx, roomID)
	if err != nil {
		return mapRoomError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, room)
}

// HandleJoin admits the caller into a room
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.Join(ctx, roomID, memberID)
	if err != nil {
		return mapRoomError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, room)
}

// HandleLeave removes the caller from a room
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.Leave(ctx, roomID, memberID); err != nil {
		return mapRoomError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Left the room",
	})
}

func mapRoomError(err error) error {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return httputil.NotFound("Room not found")
	case errors.Is(err, ErrRoomFull):
		return httputil.Conflict("Room is full")
	case errors.Is(err, ErrRoomDeleting):
		return httputil.Conflict("Room is scheduled for deletion")
	case errors.Is(err, ErrAlreadyInRoom):
		return httputil.Conflict("Already in a room")
	case errors.Is(err, ErrNotInRoom):
		return httputil.NotFound("Not in this room")
	case errors.Is(err, ErrInvalidCapacity):
		return httputil.BadRequest("Capacity must be between 2 and 10")
	case errors.Is(err, ErrInvalidStudyField):
		return httputil.BadRequest("Unknown study field")
	default:
		return httputil.Internal(err)
	}
}
