package openstudy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/damins0406/lets-study-now/internal/session"
	"github.com/damins0406/lets-study-now/internal/timer"
)

// SessionService starts and ends study sessions as members move through rooms.
type SessionService interface {
	Start(ctx context.Context, memberID, roomID uuid.UUID, studyContext session.StudyContext) (*session.StudySession, error)
	End(ctx context.Context, memberID uuid.UUID) (*session.EndResult, error)
}

// TimerService starts and ends personal timers.
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

// Create opens a room with the creator as its only participant. The alone
// timer starts immediately: if nobody joins within the grace period the
// cleanup sweep tears the room down.
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, req *CreateRoomRequest) (*OpenRoom, error) {
	if req.MaxMembers < MinCapacity || req.MaxMembers > MaxCapacity {
		return nil, ErrInvalidCapacity
	}
	if !ValidStudyField(req.StudyField) {
		return nil, ErrInvalidStudyField
	}

	if _, occupied, err := s.store.ActiveRoomForMember(ctx, creatorID); err != nil {
		return nil, fmt.Errorf("failed to check room membership: %w", err)
	} else if occupied {
		return nil, ErrAlreadyInRoom
	}

	now := s.now()
	aloneAt := now
	room := &OpenRoom{
		Title:               req.Title,
		StudyField:          req.StudyField,
		MaxMembers:          req.MaxMembers,
		CurrentMembers:      1,
		CreatorID:           creatorID,
		Status:              StatusActive,
		AloneTimerStartedAt: &aloneAt,
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	p := &Participant{RoomID: room.ID, MemberID: creatorID, JoinedAt: now}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}

	s.startMemberWork(ctx, creatorID, room.ID)

	s.log.Info("open room created",
		"room_id", room.ID,
		"creator_id", creatorID,
		"max_members", room.MaxMembers,
	)

	return room, nil
}

// Join admits a member into a room. The checks run in a fixed order so the
// caller gets the most specific failure: own membership first, then room
// existence and status, then capacity, then the duplicate-row guard.
func (s *Service) Join(ctx context.Context, roomID, memberID uuid.UUID) (*OpenRoom, error) {
	if _, occupied, err := s.store.ActiveRoomForMember(ctx, memberID); err != nil {
		return nil, fmt.Errorf("failed to check room membership: %w", err)
	} else if occupied {
		return nil, ErrAlreadyInRoom
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	switch room.Status {
	case StatusPendingDelete:
		return nil, ErrRoomDeleting
	case StatusDeleted:
		return nil, ErrRoomNotFound
	}

	if room.CurrentMembers >= room.MaxMembers {
		return nil, ErrRoomFull
	}

	exists, err := s.store.ParticipantExists(ctx, roomID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to check participant: %w", err)
	}
	if exists {
		return nil, ErrAlreadyInRoom
	}

	now := s.now()
	p := &Participant{RoomID: roomID, MemberID: memberID, JoinedAt: now}
	if err := s.store.AddParticipant(ctx, p); err != nil {
		return nil, err
	}

	count, err := s.store.CountParticipants(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}

	room.CurrentMembers = count
	if count == 2 {
		room.AloneTimerStartedAt = nil
	}
	if room.Status == StatusPendingDelete && count >= 2 {
		room.Status = StatusActive
		room.DeleteScheduledAt = nil
	}
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.startMemberWork(ctx, memberID, roomID)

	s.log.Info("member joined room",
		"room_id", roomID,
		"member_id", memberID,
		"current_members", room.CurrentMembers,
	)

	return room, nil
}

// Leave removes a member from a room. Dropping to one or zero participants
// schedules the room for deletion after the grace period; both thresholds
// get the same window.
func (s *Service) Leave(ctx context.Context, roomID, memberID uuid.UUID) error {
	exists, err := s.store.ParticipantExists(ctx, roomID, memberID)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if !exists {
		return ErrNotInRoom
	}

	s.endMemberWork(ctx, memberID)

	if err := s.store.RemoveParticipant(ctx, roomID, memberID); err != nil {
		return err
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	count, err := s.store.CountParticipants(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}

	room.CurrentMembers = count
	if count <= 1 {
		// restamped on every leave, so a 1->0 drop pushes the window out
		scheduledAt := s.now().Add(GracePeriod)
		room.Status = StatusPendingDelete
		room.DeleteScheduledAt = &scheduledAt
	}
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return err
	}

	s.log.Info("member left room",
		"room_id", roomID,
		"member_id", memberID,
		"current_members", room.CurrentMembers,
		"status", room.Status,
	)

	return nil
}

// Terminate tears a room down: ends every remaining participant's session
// and timer, removes the participant rows and soft-deletes the room.
//
// The participant count is re-read before acting. A join that landed after
// the sweep selected this room aborts the termination and resets any
// pending schedule. Terminating a missing or already-deleted room is a
// no-op.
func (s *Service) Terminate(ctx context.Context, roomID uuid.UUID) error {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil
		}
		return err
	}
	if room.Status == StatusDeleted {
		return nil
	}

	count, err := s.store.CountParticipants(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to count participants: %w", err)
	}

	if count >= 2 {
		room.CurrentMembers = count
		room.Status = StatusActive
		room.DeleteScheduledAt = nil
		room.AloneTimerStartedAt = nil
		if err := s.store.UpdateRoom(ctx, room); err != nil {
			return err
		}
		s.log.Info("termination aborted, room recovered members",
			"room_id", roomID,
			"current_members", count,
		)
		return nil
	}

	participants, err := s.store.ListParticipants(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to list participants: %w", err)
	}
	for _, p := range participants {
		s.endMemberWork(ctx, p.MemberID)
	}

	if err := s.store.RemoveAllParticipants(ctx, roomID); err != nil {
		return err
	}

	room.CurrentMembers = 0
	room.Status = StatusDeleted
	room.DeleteScheduledAt = nil
	room.AloneTimerStartedAt = nil
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return err
	}

	s.log.Info("open room terminated", "room_id", roomID, "evicted", len(participants))
	return nil
}

// Get returns a room by id. Deleted rooms resolve as not found.
func (s *Service) Get(ctx context.Context, roomID uuid.UUID) (*OpenRoom, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == StatusDeleted {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// List returns one page of joinable rooms, newest first. An empty field
// means no filter; a non-empty field must be one of the known study fields.
func (s *Service) List(ctx context.Context, page int, field StudyField) (*RoomListResponse, error) {
	if page < 1 {
		page = 1
	}
	if field != "" && !ValidStudyField(field) {
		return nil, ErrInvalidStudyField
	}

	rooms, total, err := s.store.ListRooms(ctx, field, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}

	return &RoomListResponse{
		Rooms:      rooms,
		Page:       page,
		TotalCount: total,
	}, nil
}

// SweepAloneRooms returns rooms whose creator sat alone past the grace
// period, for the cleanup scheduler to terminate.
func (s *Service) SweepAloneRooms(ctx context.Context) ([]OpenRoom, error) {
	return s.store.ExpiredAloneRooms(ctx, s.now().Add(-GracePeriod))
}

// SweepScheduledDeletes returns PENDING_DELETE rooms whose schedule passed.
func (s *Service) SweepScheduledDeletes(ctx context.Context) ([]OpenRoom, error) {
	return s.store.RoomsToDelete(ctx, s.now())
}

// startMemberWork opens the member's session and timer. Failures here must
// not undo the membership change, so they are logged and swallowed.
func (s *Service) startMemberWork(ctx context.Context, memberID, roomID uuid.UUID) {
	if _, err := s.sessions.Start(ctx, memberID, roomID, session.ContextOpenStudy); err != nil {
		s.log.Warn("failed to start session on room entry",
			"member_id", memberID, "room_id", roomID, "error", err)
	}
	if _, err := s.timers.Start(ctx, memberID, roomID); err != nil {
		s.log.Warn("failed to start timer on room entry",
			"member_id", memberID, "room_id", roomID, "error", err)
	}
}

// endMemberWork closes the member's session and timer. The timer is ended
// independently: a member whose session went missing still must not keep a
// live timer bound to the room they just left. Absence of either never
// blocks leaving a room.
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
