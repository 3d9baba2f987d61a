package timer

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists personal timers, pomodoro settings and the daily study
// history aggregates.
type Store interface {
	CreateTimer(ctx context.Context, t *PersonalTimer) error
	GetTimerByMember(ctx context.Context, memberID uuid.UUID) (*PersonalTimer, error)
	ExistsByMember(ctx context.Context, memberID uuid.UUID) (bool, error)
	UpdateTimer(ctx context.Context, t *PersonalTimer) error
	DeleteTimer(ctx context.Context, memberID uuid.UUID) error

	UpsertSetting(ctx context.Context, s *PomodoroSetting) error
	GetSettingByMember(ctx context.Context, memberID uuid.UUID) (*PomodoroSetting, error)

	AddHistory(ctx context.Context, memberID uuid.UUID, date time.Time, seconds int64) error
	GetHistoryTotal(ctx context.Context, memberID uuid.UUID) (int64, error)
	GetHistoryForDate(ctx context.Context, memberID uuid.UUID, date time.Time) (int64, error)
	ListHistory(ctx context.Context, memberID uuid.UUID, from, to time.Time) ([]StudyHistory, error)
}
