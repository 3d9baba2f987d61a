package checklist

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
	store     Store
	log       *slog.Logger
	dbTimeout time.Duration
}

func NewHandler(store Store, log *slog.Logger, dbTimeout time.Duration) *Handler {
	return &Handler{store, log, dbTimeout}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", httputil.Handler(h.HandleCreate, h.log))
	r.Get("/", httputil.Handler(h.HandleList, h.log))
	r.Patch("/{itemID}", httputil.Handler(h.HandleUpdate, h.log))
	r.Delete("/{itemID}", httputil.Handler(h.HandleDelete, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleCreate adds an item to the caller's checklist
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(CreateItemRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}
	if req.Content == "" {
		return httputil.BadRequest("Content is required")
	}

	itemDate := time.Now()
	if req.ItemDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ItemDate)
		if err != nil {
			return httputil.BadRequest("Invalid item_date, expected YYYY-MM-DD")
		}
		itemDate = parsed
	}

	item := &Item{
		MemberID: memberID,
		Content:  req.Content,
		ItemDate: truncateToDate(itemDate),
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.store.CreateItem(ctx, item); err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, item)
}

// HandleList returns the caller's items for one date (default today)
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return httputil.BadRequest("Invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	items, err := h.store.ListByMemberAndDate(ctx, memberID, truncateToDate(date))
	if err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// HandleUpdate edits content or toggles completion on the caller's item
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	itemID, err := httputil.ParseUUID(r, "itemID")
	if err != nil {
		return err
	}

	req := new(UpdateItemRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	item, err := h.store.GetItem(ctx, itemID)
	if err != nil {
		return mapItemError(err)
	}
	if item.MemberID != memberID {
		return httputil.Forbidden("Not your checklist item")
	}

	if req.Content != nil {
		if *req.Content == "" {
			return httputil.BadRequest("Content cannot be empty")
		}
		item.Content = *req.Content
	}
	if req.Completed != nil {
		item.Completed = *req.Completed
	}

	if err := h.store.UpdateItem(ctx, item); err != nil {
		return mapItemError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, item)
}

// HandleDelete removes the caller's item
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	itemID, err := httputil.ParseUUID(r, "itemID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	item, err := h.store.GetItem(ctx, itemID)
	if err != nil {
		return mapItemError(err)
	}
	if item.MemberID != memberID {
		return httputil.Forbidden("Not your checklist item")
	}

	if err := h.store.DeleteItem(ctx, itemID); err != nil {
		return mapItemError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Item deleted",
	})
}

func mapItemError(err error) error {
	if errors.Is(err, ErrItemNotFound) {
		return httputil.NotFound("Checklist item not found")
	}
	return httputil.Internal(err)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
