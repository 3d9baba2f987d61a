package chat

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/damins0406/lets-study-now/internal/auth"
	"github.com/damins0406/lets-study-now/pkg/httputil"
)

type Handler struct {
	manager     *Manager
	store       Store
	authService *auth.Service
	log         *slog.Logger
	dbTimeout   time.Duration
}

func NewHandler(manager *Manager, store Store, authService *auth.Service, log *slog.Logger, dbTimeout time.Duration) *Handler {
	return &Handler{
		manager:     manager,
		store:       store,
		authService: authService,
		log:         log,
		dbTimeout:   dbTimeout,
	}
}

// RegisterRoutes mounts the socket endpoint; token auth happens inline
// because browsers cannot set headers on WebSocket upgrades.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleConnection)
}

// RegisterHistoryRoutes mounts the REST history endpoint on the
// authenticated router.
func (h *Handler) RegisterHistoryRoutes(r chi.Router) {
	r.Get("/{roomID}/messages", httputil.Handler(h.HandleHistory, h.log))
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	roomIDStr := r.URL.Query().Get("room_id")
	if roomIDStr == "" {
		http.Error(w, "room_id parameter required", http.StatusBadRequest)
		return
	}

	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		http.Error(w, "Invalid room_id format", http.StatusBadRequest)
		return
	}

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "Missing authorization token", http.StatusUnauthorized)
		return
	}

	claims, err := h.authService.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	h.log.Info("establishing chat connection",
		"member_id", claims.MemberID,
		"room_id", roomID,
		"username", claims.Username,
	)

	if err := h.manager.ServeWS(w, r, claims.MemberID, claims.Username, roomID); err != nil {
		h.log.Error("websocket upgrade failed",
			"member_id", claims.MemberID, "room_id", roomID, "error", err)
	}
}

// HandleHistory returns the latest messages of a room, newest first
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.dbTimeout)
	defer cancel()

	messages, err := h.store.ListRecent(ctx, roomID, limit)
	if err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
	})
}
