package timer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTimerExists    = errors.New("member already has an active timer")
	ErrTimerNotFound  = errors.New("no active timer for member")
	ErrPomodoroMode   = errors.New("manual toggle is not allowed in pomodoro mode")
	ErrBasicMode      = errors.New("timer is not in pomodoro mode")
	ErrSettingMissing = errors.New("pomodoro setting is required")
	ErrInvalidMinutes = errors.New("minutes must be between 1 and 120")
)

type Mode string

const (
	ModeBasic    Mode = "BASIC"
	ModePomodoro Mode = "POMODORO"
)

type Status string

const (
	StatusStudying Status = "STUDYING"
	StatusResting  Status = "RESTING"
)

// PersonalTimer measures one member's studying time while they occupy a
// room. At most one timer exists per member system-wide; it is created on
// room entry and destroyed on room exit.
//
// Time is accumulated in segments: SegmentStartedAt marks the beginning of
// the current segment, and a flush closes it, adding its length to
// TotalStudySeconds only if the member was studying. Every state change
// flushes first, so a segment is counted exactly once and the total never
// decreases.
type PersonalTimer struct {
	ID                uuid.UUID `json:"id"`
	MemberID          uuid.UUID `json:"member_id"`
	RoomID            uuid.UUID `json:"room_id"`
	Mode              Mode      `json:"mode"`
	Status            Status    `json:"status"`
	SegmentStartedAt  time.Time `json:"segment_started_at"`
	TotalStudySeconds int64     `json:"total_study_seconds"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewPersonalTimer(memberID, roomID uuid.UUID, now time.Time) *PersonalTimer {
	return &PersonalTimer{
		MemberID:         memberID,
		RoomID:           roomID,
		Mode:             ModeBasic,
		Status:           StatusStudying,
		SegmentStartedAt: now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// flush closes the current segment: studying time is added to the total,
// resting time is discarded, and a new segment starts either way.
func (t *PersonalTimer) flush(now time.Time) {
	if t.Status == StatusStudying {
		elapsed := now.Sub(t.SegmentStartedAt)
		if elapsed > 0 {
			t.TotalStudySeconds += int64(elapsed / time.Second)
		}
	}
	t.SegmentStartedAt = now
	t.UpdatedAt = now
}

// Toggle flips between studying and resting. Only allowed in basic mode;
// pomodoro transitions are driven by ChangePomodoroStatus.
func (t *PersonalTimer) Toggle(now time.Time) error {
	if t.Mode == ModePomodoro {
		return ErrPomodoroMode
	}

	t.flush(now)

	if t.Status == StatusStudying {
		t.Status = StatusResting
	} else {
		t.Status = StatusStudying
	}

	return nil
}

// SwitchMode changes between basic and pomodoro mode.
// The accumulated total carries over.
func (t *PersonalTimer) SwitchMode(mode Mode, now time.Time) {
	t.flush(now)
	t.Mode = mode
}

// ChangePomodoroStatus sets studying/resting in pomodoro mode
func (t *PersonalTimer) ChangePomodoroStatus(status Status, now time.Time) error {
	if t.Mode != ModePomodoro {
		return ErrBasicMode
	}

	t.flush(now)
	t.Status = status

	return nil
}

// End closes the final segment and returns the accumulated seconds.
// The caller is responsible for destroying the timer afterwards.
func (t *PersonalTimer) End(now time.Time) int64 {
	t.flush(now)
	return t.TotalStudySeconds
}

// CurrentSegmentSeconds reports how long the current segment has been
// running. Read-only, for status display.
func (t *PersonalTimer) CurrentSegmentSeconds(now time.Time) int64 {
	elapsed := now.Sub(t.SegmentStartedAt)
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed / time.Second)
}

// PomodoroSetting holds a member's study/rest interval lengths.
// One row per member; required before a timer may enter pomodoro mode.
type PomodoroSetting struct {
	ID           uuid.UUID `json:"id"`
	MemberID     uuid.UUID `json:"member_id"`
	StudyMinutes int       `json:"study_minutes"`
	RestMinutes  int       `json:"rest_minutes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudyHistory is the daily aggregate a timer's seconds flush into when it
// is destroyed. One row per (member, date).
type StudyHistory struct {
	ID                uuid.UUID `json:"id"`
	MemberID          uuid.UUID `json:"member_id"`
	StudyDate         time.Time `json:"study_date"`
	TotalStudySeconds int64     `json:"total_study_seconds"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type StatusResponse struct {
	MemberID              uuid.UUID `json:"member_id"`
	RoomID                uuid.UUID `json:"room_id"`
	Mode                  Mode      `json:"mode"`
	Status                Status    `json:"status"`
	CurrentSegmentSeconds int64     `json:"current_segment_seconds"`
	TotalStudySeconds     int64     `json:"total_study_seconds"`
}

type StudyTimeResponse struct {
	TotalSeconds int64 `json:"total_seconds"`
	TodaySeconds int64 `json:"today_seconds"`
}

type SettingRequest struct {
	StudyMinutes int `json:"study_minutes"`
	RestMinutes  int `json:"rest_minutes"`
}

type ChangeStatusRequest struct {
	Status Status `json:"status"`
}
