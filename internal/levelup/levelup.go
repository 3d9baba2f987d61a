package levelup

import (
	"context"
	"log/slog"
	"math"

	"github.com/google/uuid"
)

// Progress is the slice of a member's row the level system cares about
type Progress struct {
	MemberID uuid.UUID `json:"member_id"`
	Username string    `json:"username"`
	Level    int       `json:"level"`
	TotalExp int       `json:"total_exp"`
}

// Store reads and writes member level progress
type Store interface {
	GetProgress(ctx context.Context, memberID uuid.UUID) (*Progress, error)
	UpdateProgress(ctx context.Context, memberID uuid.UUID, level, totalExp int) error
}

// Result of applying study minutes to a member
type Result struct {
	LeveledUp bool
	NewLevel  int
}

// LevelInfo describes where a member stands within the current level
type LevelInfo struct {
	MemberID                uuid.UUID `json:"member_id"`
	Username                string    `json:"username"`
	CurrentLevel            int       `json:"current_level"`
	TotalExp                int       `json:"total_exp"`
	CurrentLevelExp         int       `json:"current_level_exp"`
	RequiredExpForNextLevel int       `json:"required_exp_for_next_level"`
	RemainingExp            int       `json:"remaining_exp"`
	Progress                float64   `json:"progress"`
}

// Service converts accumulated study minutes into level progression.
// One study minute is one experience point.
type Service struct {
	store Store
	log   *slog.Logger
}

func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// RequiredMinutesForLevel returns the cost of advancing from the given
// level to the next one. Levels 1-9 cost 10 hours, 10-19 cost 20 hours,
// and so on: every ten levels the step grows by another 10 hours.
func RequiredMinutesForLevel(currentLevel int) int {
	tens := currentLevel / 10
	return (tens + 1) * 600
}

// totalExpForLevel is the cumulative experience needed to reach targetLevel
func totalExpForLevel(targetLevel int) int {
	total := 0
	for level := 1; level < targetLevel; level++ {
		total += RequiredMinutesForLevel(level)
	}
	return total
}

// ApplyMinutes adds study minutes to a member's experience and performs
// any level-ups the new total allows. Several levels can be gained at once.
func (s *Service) ApplyMinutes(ctx context.Context, memberID uuid.UUID, minutes int) (*Result, error) {
	progress, err := s.store.GetProgress(ctx, memberID)
	if err != nil {
		return nil, err
	}

	progress.TotalExp += minutes

	leveledUp := false
	for progress.TotalExp >= totalExpForLevel(progress.Level+1) {
		progress.Level++
		leveledUp = true
	}

	if err := s.store.UpdateProgress(ctx, memberID, progress.Level, progress.TotalExp); err != nil {
		return nil, err
	}

	if leveledUp {
		s.log.Info("member leveled up",
			"member_id", memberID,
			"username", progress.Username,
			"new_level", progress.Level,
		)
	}

	return &Result{LeveledUp: leveledUp, NewLevel: progress.Level}, nil
}

// Info returns the member's position within the current level
func (s *Service) Info(ctx context.Context, memberID uuid.UUID) (*LevelInfo, error) {
	progress, err := s.store.GetProgress(ctx, memberID)
	if err != nil {
		return nil, err
	}

	totalForCurrent := totalExpForLevel(progress.Level)
	totalForNext := totalExpForLevel(progress.Level + 1)

	currentLevelExp := progress.TotalExp - totalForCurrent
	requiredForNext := totalForNext - totalForCurrent

	ratio := float64(currentLevelExp) / float64(requiredForNext) * 100.0

	return &LevelInfo{
		MemberID:                progress.MemberID,
		Username:                progress.Username,
		CurrentLevel:            progress.Level,
		TotalExp:                progress.TotalExp,
		CurrentLevelExp:         currentLevelExp,
		RequiredExpForNextLevel: requiredForNext,
		RemainingExp:            totalForNext - progress.TotalExp,
		Progress:                math.Round(ratio*10) / 10,
	}, nil
}
