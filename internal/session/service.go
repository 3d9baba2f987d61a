package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/damins0406/lets-study-now/internal/levelup"
	"github.com/damins0406/lets-study-now/internal/timer"
)

// TimerEnder closes a member's timer and returns the accumulated seconds.
type TimerEnder interface {
	End(ctx context.Context, memberID uuid.UUID) (int64, error)
}

// LevelUpper credits study minutes as experience.
type LevelUpper interface {
	ApplyMinutes(ctx context.Context, memberID uuid.UUID, minutes int) (*levelup.Result, error)
}

// Service ties sessions to timers and level progression. Room services call
// Start on entry and End on exit; the member never drives these directly.
type Service struct {
	store  Store
	timers TimerEnder
	levels LevelUpper
	log    *slog.Logger
	now    func() time.Time
}

func NewService(store Store, timers TimerEnder, levels LevelUpper, log *slog.Logger) *Service {
	return &Service{
		store:  store,
		timers: timers,
		levels: levels,
		log:    log,
		now:    time.Now,
	}
}

// Start opens a session for a member entering a room. A leftover active
// session (crash, dropped connection) is force-closed first with zero
// credit rather than blocking the new one.
func (s *Service) Start(ctx context.Context, memberID, roomID uuid.UUID, studyContext StudyContext) (*StudySession, error) {
	stale, err := s.store.GetActiveByMember(ctx, memberID)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}

	now := s.now()
	if stale != nil {
		s.log.Warn("force-closing stale session",
			"session_id", stale.ID,
			"member_id", memberID,
			"started_at", stale.StartTime,
		)
		if err := s.store.CloseSession(ctx, stale.ID, now, 0); err != nil && !errors.Is(err, ErrSessionEnded) {
			return nil, fmt.Errorf("failed to close stale session: %w", err)
		}
	}

	sess := &StudySession{
		MemberID:     memberID,
		StudyContext: studyContext,
		RoomID:       roomID,
		StartTime:    now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// End closes the member's active session. The timer's accumulated seconds
// become the session's study minutes (floored), which are then credited as
// experience. A missing timer yields zero minutes, not an error.
func (s *Service) End(ctx context.Context, memberID uuid.UUID) (*EndResult, error) {
	sess, err := s.store.GetActiveByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	seconds, err := s.timers.End(ctx, memberID)
	if err != nil {
		if !errors.Is(err, timer.ErrTimerNotFound) {
			return nil, fmt.Errorf("failed to end timer: %w", err)
		}
		seconds = 0
	}

	minutes := int(seconds / 60)
	if err := s.store.CloseSession(ctx, sess.ID, s.now(), minutes); err != nil {
		return nil, err
	}

	result := &EndResult{
		SessionID:    sess.ID,
		StudyMinutes: minutes,
	}

	if minutes > 0 {
		levelResult, err := s.levels.ApplyMinutes(ctx, memberID, minutes)
		if err != nil {
			return nil, fmt.Errorf("failed to apply experience: %w", err)
		}
		if levelResult.LeveledUp {
			result.LeveledUp = true
			newLevel := levelResult.NewLevel
			result.NewLevel = &newLevel
		}
	}

	s.log.Debug("session ended",
		"session_id", sess.ID,
		"member_id", memberID,
		"study_minutes", minutes,
		"leveled_up", result.LeveledUp,
	)

	return result, nil
}

// Active returns the member's active session, or nil when there is none.
func (s *Service) Active(ctx context.Context, memberID uuid.UUID) (*StudySession, error) {
	sess, err := s.store.GetActiveByMember(ctx, memberID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return sess, nil
}

// Recent lists the member's latest sessions, newest first.
func (s *Service) Recent(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]StudySession, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByMember(ctx, memberID, limit, offset)
}
