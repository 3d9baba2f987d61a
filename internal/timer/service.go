package timer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Service owns the timer lifecycle. Room services call Start and End when
// members come and go; the HTTP handler exposes the in-room controls.
type Service struct {
	store Store
	log   *slog.Logger
	now   func() time.Time
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Start creates a timer for a member entering a room. A member can have at
// most one timer; a second Start fails with ErrTimerExists.
func (s *Service) Start(ctx context.Context, memberID, roomID uuid.UUID) (*PersonalTimer, error) {
	exists, err := s.store.ExistsByMember(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing timer: %w", err)
	}
	if exists {
		return nil, ErrTimerExists
	}

	t := NewPersonalTimer(memberID, roomID, s.now())
	if err := s.store.CreateTimer(ctx, t); err != nil {
		return nil, err
	}

	s.log.Debug("timer started", "member_id", memberID, "room_id", roomID)
	return t, nil
}

// End flushes the member's timer into the daily history and destroys it.
// Returns the seconds accumulated over the timer's whole lifetime.
func (s *Service) End(ctx context.Context, memberID uuid.UUID) (int64, error) {
	t, err := s.store.GetTimerByMember(ctx, memberID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	total := t.End(now)

	if total > 0 {
		date := truncateToDate(now)
		if err := s.store.AddHistory(ctx, memberID, date, total); err != nil {
			return 0, fmt.Errorf("failed to record study history: %w", err)
		}
	}

	if err := s.store.DeleteTimer(ctx, memberID); err != nil {
		return 0, err
	}

	s.log.Debug("timer ended", "member_id", memberID, "total_seconds", total)
	return total, nil
}

// Toggle flips a basic-mode timer between studying and resting.
func (s *Service) Toggle(ctx context.Context, memberID uuid.UUID) (*PersonalTimer, error) {
	t, err := s.store.GetTimerByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if err := t.Toggle(s.now()); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTimer(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// StartPomodoro switches the timer into pomodoro mode. The member must have
// saved a pomodoro setting first.
func (s *Service) StartPomodoro(ctx context.Context, memberID uuid.UUID) (*PersonalTimer, *PomodoroSetting, error) {
	setting, err := s.store.GetSettingByMember(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}

	t, err := s.store.GetTimerByMember(ctx, memberID)
	if err != nil {
		return nil, nil, err
	}

	t.SwitchMode(ModePomodoro, s.now())
	t.Status = StatusStudying

	if err := s.store.UpdateTimer(ctx, t); err != nil {
		return nil, nil, err
	}

	return t, setting, nil
}

// StopPomodoro returns the timer to basic mode, keeping the accumulated total.
func (s *Service) StopPomodoro(ctx context.Context, memberID uuid.UUID) (*PersonalTimer, error) {
	t, err := s.store.GetTimerByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if t.Mode != ModePomodoro {
		return nil, ErrBasicMode
	}

	t.SwitchMode(ModeBasic, s.now())
	t.Status = StatusStudying

	if err := s.store.UpdateTimer(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// ChangePomodoroStatus moves a pomodoro timer between its study and rest
// phases. Called by the client when an interval elapses.
func (s *Service) ChangePomodoroStatus(ctx context.Context, memberID uuid.UUID, status Status) (*PersonalTimer, error) {
	if status != StatusStudying && status != StatusResting {
		return nil, fmt.Errorf("unknown timer status %q", status)
	}

	t, err := s.store.GetTimerByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	if err := t.ChangePomodoroStatus(status, s.now()); err != nil {
		return nil, err
	}

	if err := s.store.UpdateTimer(ctx, t); err != nil {
		return nil, err
	}

	return t, nil
}

// Status reports the member's current timer snapshot.
func (s *Service) Status(ctx context.Context, memberID uuid.UUID) (*StatusResponse, error) {
	t, err := s.store.GetTimerByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	return &StatusResponse{
		MemberID:              t.MemberID,
		RoomID:                t.RoomID,
		Mode:                  t.Mode,
		Status:                t.Status,
		CurrentSegmentSeconds: t.CurrentSegmentSeconds(now),
		TotalStudySeconds:     t.TotalStudySeconds,
	}, nil
}

// StudyTime reports lifetime and same-day accumulated seconds from the
// history table. A live timer's unflushed segment is not included.
func (s *Service) StudyTime(ctx context.Context, memberID uuid.UUID) (*StudyTimeResponse, error) {
	total, err := s.store.GetHistoryTotal(ctx, memberID)
	if err != nil {
		return nil, err
	}

	today, err := s.store.GetHistoryForDate(ctx, memberID, truncateToDate(s.now()))
	if err != nil {
		return nil, err
	}

	return &StudyTimeResponse{TotalSeconds: total, TodaySeconds: today}, nil
}

// History returns the member's daily aggregates in [from, to].
func (s *Service) History(ctx context.Context, memberID uuid.UUID, from, to time.Time) ([]StudyHistory, error) {
	return s.store.ListHistory(ctx, memberID, truncateToDate(from), truncateToDate(to))
}

// SaveSetting creates or replaces the member's pomodoro interval lengths.
func (s *Service) SaveSetting(ctx context.Context, memberID uuid.UUID, studyMinutes, restMinutes int) (*PomodoroSetting, error) {
	if studyMinutes < 1 || studyMinutes > 120 || restMinutes < 1 || restMinutes > 120 {
		return nil, ErrInvalidMinutes
	}

	setting := &PomodoroSetting{
		MemberID:     memberID,
		StudyMinutes: studyMinutes,
		RestMinutes:  restMinutes,
	}
	if err := s.store.UpsertSetting(ctx, setting); err != nil {
		return nil, err
	}

	return setting, nil
}

// Setting returns the member's saved pomodoro setting.
func (s *Service) Setting(ctx context.Context, memberID uuid.UUID) (*PomodoroSetting, error) {
	return s.store.GetSettingByMember(ctx, memberID)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
