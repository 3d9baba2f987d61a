package groupstudy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/damins0406/lets-study-now/internal/openstudy"
	"github.com/damins0406/lets-study-now/internal/session"
	"github.com/damins0406/lets-study-now/internal/timer"
)

type SessionService interface {
	Start(ctx context.Context, memberID, roomID uuid.UUID, studyContext session.StudyContext) (*session.StudySession, error)
	End(ctx context.Context, memberID uuid.UUID) (*session.EndResult, error)
}

type TimerService interface {
	Start(ctx context.Context, memberID, roomID uuid.UUID) (*timer.PersonalTimer, error)
	End(ctx context.Context, memberID uuid.UUID) (int64, error)
}

type Service struct {
	store    Store
	sessions SessionService
	timers   TimerService
	log      *slog.Logger
	now      func() time.Time
}

func NewService(store Store, sessions SessionService, timers TimerService, log *slog.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		timers:   timers,
		log:      log,
		now:      time.Now,
	}
}

// CreateGroup makes a new group with the creator as its leader and first
// member.
func (s *Service) CreateGroup(ctx context.Context, leaderID uuid.UUID, name string) (*Group, error) {
	if name == "" {
		return nil, fmt.Errorf("group name is required")
	}

	g := &Group{Name: name, LeaderID: leaderID}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return nil, err
	}

	m := &GroupMember{GroupID: g.ID, MemberID: leaderID, Role: RoleLeader}
	if err := s.store.AddGroupMember(ctx, m); err != nil {
		return nil, err
	}

	g.MemberCount = 1
	s.log.Info("group created", "group_id", g.ID, "leader_id", leaderID)
	return g, nil
}

func (s *Service) GetGroup(ctx context.Context, groupID uuid.UUID) (*Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

func (s *Service) ListGroups(ctx context.Context) ([]Group, error) {
	return s.store.ListGroups(ctx)
}

func (s *Service) MyGroups(ctx context.Context, leaderID uuid.UUID) ([]Group, error) {
	return s.store.ListGroupsByLeader(ctx, leaderID)
}

// DeleteGroup removes a group. Leader only, and only while the leader is
// the last remaining member.
func (s *Service) DeleteGroup(ctx context.Context, groupID, requesterID uuid.UUID) error {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.LeaderID != requesterID {
		return ErrNotGroupLeader
	}

	count, err := s.store.CountGroupMembers(ctx, groupID)
	if err != nil {
		return err
	}
	if count > 1 {
		return ErrGroupNotEmpty
	}

	return s.store.DeleteGroup(ctx, groupID)
}

// AddMember puts a member into a group with the plain MEMBER role.
func (s *Service) AddMember(ctx context.Context, groupID, memberID uuid.UUID) (*GroupMember, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	if _, err := s.store.GetGroupMember(ctx, groupID, memberID); err == nil {
		return nil, ErrAlreadyGroupMember
	} else if !errors.Is(err, ErrNotGroupMember) {
		return nil, err
	}

	m := &GroupMember{GroupID: groupID, MemberID: memberID, Role: RoleMember}
	if err := s.store.AddGroupMember(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

func (s *Service) GroupMembers(ctx context.Context, groupID uuid.UUID) ([]GroupMember, error) {
	return s.store.ListGroupMembers(ctx, groupID)
}

// RemoveMember kicks a member out of a group. Leader only, never the
// leader themselves.
func (s *Service) RemoveMember(ctx context.Context, groupID, memberID, requesterID uuid.UUID) error {
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.LeaderID != requesterID {
		return ErrNotGroupLeader
	}
	if memberID == requesterID {
		return ErrCannotRemoveSelf
	}

	if _, err := s.store.GetGroupMember(ctx, groupID, memberID); err != nil {
		return err
	}

	return s.store.RemoveGroupMember(ctx, groupID, memberID)
}

// CreateRoom opens a fixed-duration study room inside a group. The creator
// must already belong to the group and enters immediately.
func (s *Service) CreateRoom(ctx context.Context, creatorID uuid.UUID, req *CreateRoomRequest) (*StudyRoom, error) {
	if _, err := s.store.GetGroup(ctx, req.GroupID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetGroupMember(ctx, req.GroupID, creatorID); err != nil {
		return nil, err
	}

	if req.RoomName == "" {
		return nil, fmt.Errorf("room name is required")
	}
	if req.StudyHours < MinStudyHours || req.StudyHours > MaxStudyHours {
		return nil, ErrInvalidStudyHours
	}
	if req.MaxMembers < MinCapacity || req.MaxMembers > MaxCapacity {
		return nil, ErrInvalidCapacity
	}
	if !openstudy.ValidStudyField(req.StudyField) {
		return nil, fmt.Errorf("unknown study field")
	}

	now := s.now()
	room := &StudyRoom{
		GroupID:        req.GroupID,
		RoomName:       req.RoomName,
		StudyField:     req.StudyField,
		StudyHours:     req.StudyHours,
		MaxMembers:     req.MaxMembers,
		CurrentMembers: 1,
		CreatorID:      creatorID,
		Status:         RoomActive,
		EndTime:        now.Add(time.Duration(req.StudyHours) * time.Hour),
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	p := &RoomParticipant{RoomID: room.ID, MemberID: creatorID, JoinedAt: now}
	if err := s.store.AddRoomParticipant(ctx, p); err != nil {
		return nil, err
	}

	s.startMemberWork(ctx, creatorID, room.ID)

	s.log.Info("study room created",
		"room_id", room.ID,
		"group_id", room.GroupID,
		"creator_id", creatorID,
		"end_time", room.EndTime,
	)

	return room, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID uuid.UUID) (*StudyRoom, error) {
	return s.store.GetRoom(ctx, roomID)
}

func (s *Service) GroupRooms(ctx context.Context, groupID uuid.UUID) ([]StudyRoom, error) {
	return s.store.ListRoomsByGroup(ctx, groupID)
}

func (s *Service) RoomParticipants(ctx context.Context, roomID uuid.UUID) ([]RoomParticipant, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListRoomParticipants(ctx, roomID)
}

// JoinRoom admits a group member into one of the group's rooms.
func (s *Service) JoinRoom(ctx context.Context, roomID, memberID uuid.UUID) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if _, err := s.store.GetGroupMember(ctx, room.GroupID, memberID); err != nil {
		return err
	}

	exists, err := s.store.RoomParticipantExists(ctx, roomID, memberID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInRoom
	}

	if room.Full() {
		return ErrRoomFull
	}
	if room.Expired(s.now()) {
		return ErrRoomEnded
	}

	p := &RoomParticipant{RoomID: roomID, MemberID: memberID, JoinedAt: s.now()}
	if err := s.store.AddRoomParticipant(ctx, p); err != nil {
		return err
	}

	count, err := s.store.CountRoomParticipants(ctx, roomID)
	if err != nil {
		return err
	}
	room.CurrentMembers = count
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return err
	}

	s.startMemberWork(ctx, memberID, roomID)

	s.log.Info("member joined study room",
		"room_id", roomID,
		"member_id", memberID,
		"current_members", room.CurrentMembers,
	)

	return nil
}

// LeaveRoom removes a member from a room. The creator cannot leave their
// own room; they end or delete it instead.
func (s *Service) LeaveRoom(ctx context.Context, roomID, memberID uuid.UUID) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID == memberID {
		return ErrCreatorCannotLeave
	}

	exists, err := s.store.RoomParticipantExists(ctx, roomID, memberID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotInRoom
	}

	s.endMemberWork(ctx, memberID)

	if err := s.store.RemoveRoomParticipant(ctx, roomID, memberID); err != nil {
		return err
	}

	count, err := s.store.CountRoomParticipants(ctx, roomID)
	if err != nil {
		return err
	}
	room.CurrentMembers = count
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return err
	}

	s.log.Info("member left study room",
		"room_id", roomID,
		"member_id", memberID,
		"current_members", room.CurrentMembers,
	)

	return nil
}

// EndRoom force-closes a room at any membership level: every participant's
// session and timer is ended, participant rows are removed and the room
// row is physically deleted. Creator only.
func (s *Service) EndRoom(ctx context.Context, roomID, requesterID uuid.UUID) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != requesterID {
		return ErrNotCreator
	}

	return s.teardownRoom(ctx, room)
}

// DeleteRoom removes a room before its time is up. Creator only, and only
// while the creator is the last participant.
func (s *Service) DeleteRoom(ctx context.Context, roomID, requesterID uuid.UUID) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if room.CreatorID != requesterID {
		return ErrNotCreator
	}

	count, err := s.store.CountRoomParticipants(ctx, roomID)
	if err != nil {
		return err
	}
	if count > 1 {
		return ErrRoomNotEmpty
	}

	return s.teardownRoom(ctx, room)
}

// EndExpiredRoom is the scheduler's entry point: it tears a room down
// without a creator check. A room that vanished since the sweep query is a
// no-op.
func (s *Service) EndExpiredRoom(ctx context.Context, roomID uuid.UUID) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		return err
	}

	return s.teardownRoom(ctx, room)
}

// SweepExpiredRooms lists ACTIVE rooms whose end time has passed.
func (s *Service) SweepExpiredRooms(ctx context.Context) ([]StudyRoom, error) {
	return s.store.ExpiredRooms(ctx, s.now())
}

func (s *Service) teardownRoom(ctx context.Context, room *StudyRoom) error {
	participants, err := s.store.ListRoomParticipants(ctx, room.ID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		s.endMemberWork(ctx, p.MemberID)
	}

	if err := s.store.RemoveAllRoomParticipants(ctx, room.ID); err != nil {
		return err
	}
	if err := s.store.DeleteRoom(ctx, room.ID); err != nil {
		return err
	}

	s.log.Info("study room ended",
		"room_id", room.ID,
		"group_id", room.GroupID,
		"evicted", len(participants),
	)

	return nil
}

func (s *Service) startMemberWork(ctx context.Context, memberID, roomID uuid.UUID) {
	if _, err := s.sessions.Start(ctx, memberID, roomID, session.ContextGroupStudy); err != nil {
		s.log.Warn("failed to start session on room entry",
			"member_id", memberID, "room_id", roomID, "error", err)
	}
	if _, err := s.timers.Start(ctx, memberID, roomID); err != nil {
		s.log.Warn("failed to start timer on room entry",
			"member_id", memberID, "room_id", roomID, "error", err)
	}
}

// endMemberWork closes the member's session and, independently, their
// timer: a missing session must not leave a live timer behind.
func (s *Service) endMemberWork(ctx context.Context, memberID uuid.UUID) {
	if _, err := s.sessions.End(ctx, memberID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		s.log.Warn("failed to end session on room exit",
			"member_id", memberID, "error", err)
	}
	if _, err := s.timers.End(ctx, memberID); err != nil && !errors.Is(err, timer.ErrTimerNotFound) {
		s.log.Warn("failed to end timer on room exit",
			"member_id", memberID, "error", err)
	}
}
