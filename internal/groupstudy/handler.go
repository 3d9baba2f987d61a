package groupstudy

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

// RegisterGroupRoutes mounts group management under /api/groups
func (h *Handler) RegisterGroupRoutes(r chi.Router) {
	r.Post("/", httputil.Handler(h.HandleCreateGroup, h.log))
	r.Get("/", httputil.Handler(h.HandleListGroups, h.log))
	r.Get("/mine", httputil.Handler(h.HandleMyGroups, h.log))
	r.Get("/{groupID}", httputil.Handler(h.HandleGetGroup, h.log))
	r.Delete("/{groupID}", httputil.Handler(h.HandleDeleteGroup, h.log))
	r.Post("/{groupID}/members", httputil.Handler(h.HandleAddMember, h.log))
	r.Get("/{groupID}/members", httputil.Handler(h.HandleGroupMembers, h.log))
	r.Delete("/{groupID}/members/{memberID}", httputil.Handler(h.HandleRemoveMember, h.log))
	r.Get("/{groupID}/rooms", httputil.Handler(h.HandleGroupRooms, h.log))
}

// RegisterRoomRoutes mounts study rooms under /api/study-rooms
func (h *Handler) RegisterRoomRoutes(r chi.Router) {
	r.Post("/", httputil.Handler(h.HandleCreateRoom, h.log))
	r.Get("/{roomID}", httputil.Handler(h.HandleGetRoom, h.log))
	r.Get("/{roomID}/participants", httputil.Handler(h.HandleRoomParticipants, h.log))
	r.Post("/{roomID}/join", httputil.Handler(h.HandleJoinRoom, h.log))
	r.Post("/{roomID}/leave", httputil.Handler(h.HandleLeaveRoom, h.log))
	r.Post("/{roomID}/end", httputil.Handler(h.HandleEndRoom, h.log))
	r.Delete("/{roomID}", httputil.Handler(h.HandleDeleteRoom, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(CreateGroupRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}
	if req.Name == "" {
		return httputil.BadRequest("Group name is required")
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	g, err := h.service.CreateGroup(ctx, memberID, req.Name)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, g)
}

func (h *Handler) HandleListGroups(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := h.dbCtx(r)
	defer cancel()

	groups, err := h.service.ListGroups(ctx)
	if err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) HandleMyGroups(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	groups, err := h.service.MyGroups(ctx, memberID)
	if err != nil {
		return httputil.Internal(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

func (h *Handler) HandleGetGroup(w http.ResponseWriter, r *http.Request) error {
	groupID, err := httputil.ParseUUID(r, "groupID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	g, err := h.service.GetGroup(ctx, groupID)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, g)
}

func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	groupID, err := httputil.ParseUUID(r, "groupID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.DeleteGroup(ctx, groupID, memberID); err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Group deleted",
	})
}

func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) error {
	groupID, err := httputil.ParseUUID(r, "groupID")
	if err != nil {
		return err
	}

	req := new(AddGroupMemberRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	m, err := h.service.AddMember(ctx, groupID, req.MemberID)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, m)
}

func (h *Handler) HandleGroupMembers(w http.ResponseWriter, r *http.Request) error {
	groupID, err := httputil.ParseUUID(r, "groupID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	members, err := h.service.GroupMembers(ctx, groupID)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) error {
	requesterID := auth.GetMemberID(r.Context())

	groupID, err := httputil.ParseUUID(r, "groupID")
	if err != nil {
		return err
	}
	memberID, err := httputil.ParseUUID(r, "memberID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.RemoveMember(ctx, groupID, memberID, requesterID); err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Member removed",
	})
}

func (h *Handler) HandleGroupRooms(w http.ResponseWriter, r *http.Request) error {
	groupID, err := httputil.ParseUUID(r, "groupID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	rooms, err := h.service.GroupRooms(ctx, groupID)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	req := new(CreateRoomRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.CreateRoom(ctx, memberID, req)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, room)
}

func (h *Handler) HandleGetRoom(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.GetRoom(ctx, roomID)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, room)
}

func (h *Handler) HandleRoomParticipants(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	participants, err := h.service.RoomParticipants(ctx, roomID)
	if err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]any{"participants": participants})
}

func (h *Handler) HandleJoinRoom(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.JoinRoom(ctx, roomID, memberID); err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Joined the room",
	})
}

func (h *Handler) HandleLeaveRoom(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.LeaveRoom(ctx, roomID, memberID); err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Left the room",
	})
}

func (h *Handler) HandleEndRoom(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.EndRoom(ctx, roomID, memberID); err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Room ended",
	})
}

func (h *Handler) HandleDeleteRoom(w http.ResponseWriter, r *http.Request) error {
	memberID := auth.GetMemberID(r.Context())

	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.DeleteRoom(ctx, roomID, memberID); err != nil {
		return mapGroupError(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": "Room deleted",
	})
}

func mapGroupError(err error) error {
	switch {
	case errors.Is(err, ErrGroupNotFound):
		return httputil.NotFound("Group not found")
	case errors.Is(err, ErrRoomNotFound):
		return httputil.NotFound("Study room not found")
	case errors.Is(err, ErrNotGroupMember):
		return httputil.Forbidden("Not a member of this group")
	case errors.Is(err, ErrNotGroupLeader):
		return httputil.Forbidden("Only the group leader may do this")
	case errors.Is(err, ErrNotCreator):
		return httputil.Forbidden("Only the room creator may do this")
	case errors.Is(err, ErrCannotRemoveSelf):
		return httputil.BadRequest("Leader cannot remove themselves")
	case errors.Is(err, ErrGroupNotEmpty):
		return httputil.Conflict("Group still has other members")
	case errors.Is(err, ErrRoomNotEmpty):
		return httputil.Conflict("Room still has other members")
	case errors.Is(err, ErrAlreadyGroupMember):
		return httputil.Conflict("Already a group member")
	case errors.Is(err, ErrAlreadyInRoom):
		return httputil.Conflict("Already in this room")
	case errors.Is(err, ErrNotInRoom):
		return httputil.NotFound("Not in this room")
	case errors.Is(err, ErrRoomFull):
		return httputil.Conflict("Room is full")
	case errors.Is(err, ErrRoomEnded):
		return httputil.Conflict("Room already ended")
	case errors.Is(err, ErrCreatorCannotLeave):
		return httputil.BadRequest("Room creator cannot leave, delete the room instead")
	case errors.Is(err, ErrInvalidStudyHours):
		return httputil.BadRequest("Study hours must be between 1 and 5")
	case errors.Is(err, ErrInvalidCapacity):
		return httputil.BadRequest("Capacity must be between 2 and 10")
	default:
		return httputil.Internal(err)
	}
}
