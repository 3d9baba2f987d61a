package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("no active study session")
	ErrSessionEnded    = errors.New("study session already ended")
)

type StudyContext string

const (
	ContextOpenStudy  StudyContext = "OPEN_STUDY"
	ContextGroupStudy StudyContext = "GROUP_STUDY"
)

// StudySession records one continuous stay in a room. A member has at most
// one active session (EndTime == nil) at a time; starting a new one
// force-closes any stale leftover.
type StudySession struct {
	ID           uuid.UUID    `json:"id"`
	MemberID     uuid.UUID    `json:"member_id"`
	StudyContext StudyContext `json:"study_context"`
	RoomID       uuid.UUID    `json:"room_id"`
	StartTime    time.Time    `json:"start_time"`
	EndTime      *time.Time   `json:"end_time,omitempty"`
	StudyMinutes int          `json:"study_minutes"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (s *StudySession) Active() bool {
	return s.EndTime == nil
}

// EndResult is what closing a session yields: the credited minutes and the
// level-up outcome, if any.
type EndResult struct {
	SessionID    uuid.UUID `json:"session_id"`
	StudyMinutes int       `json:"study_minutes"`
	LeveledUp    bool      `json:"leveled_up"`
	NewLevel     *int      `json:"new_level,omitempty"`
}
