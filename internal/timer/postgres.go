package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTimerQuery = `
		INSERT INTO personal_timers (member_id, room_id, mode, status, segment_started_at, total_study_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	getTimerByMemberQuery = `
		SELECT id, member_id, room_id, mode, status, segment_started_at, total_study_seconds, created_at, updated_at
		FROM personal_timers
		WHERE member_id = $1
	`

	existsTimerByMemberQuery = `
		SELECT EXISTS(SELECT 1 FROM personal_timers WHERE member_id = $1)
	`

	updateTimerQuery = `
		UPDATE personal_timers
		SET mode = $2, status = $3, segment_started_at = $4, total_study_seconds = $5, updated_at = NOW()
		WHERE id = $1
	`

	deleteTimerQuery = `
		DELETE FROM personal_timers WHERE member_id = $1
	`

	upsertSettingQuery = `
		INSERT INTO pomodoro_settings (member_id, study_minutes, rest_minutes)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id) DO UPDATE
		SET study_minutes = EXCLUDED.study_minutes,
		    rest_minutes = EXCLUDED.rest_minutes,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	getSettingByMemberQuery = `
		SELECT id, member_id, study_minutes, rest_minutes, created_at, updated_at
		FROM pomodoro_settings
		WHERE member_id = $1
	`

	addHistoryQuery = `
		INSERT INTO study_history (member_id, study_date, total_study_seconds)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id, study_date) DO UPDATE
		SET total_study_seconds = study_history.total_study_seconds + EXCLUDED.total_study_seconds,
		    updated_at = NOW()
	`

	historyTotalQuery = `
		SELECT COALESCE(SUM(total_study_seconds), 0)
		FROM study_history
		WHERE member_id = $1
	`

	historyForDateQuery = `
		SELECT COALESCE(SUM(total_study_seconds), 0)
		FROM study_history
		WHERE member_id = $1 AND study_date = $2
	`

	listHistoryQuery = `
		SELECT id, member_id, study_date, total_study_seconds, created_at, updated_at
		FROM study_history
		WHERE member_id = $1 AND study_date >= $2 AND study_date <= $3
		ORDER BY study_date
	`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateTimer(ctx context.Context, t *PersonalTimer) error {
	err := s.pool.QueryRow(ctx, createTimerQuery,
		t.MemberID,
		t.RoomID,
		t.Mode,
		t.Status,
		t.SegmentStartedAt,
		t.TotalStudySeconds,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrTimerExists
		}
		return fmt.Errorf("failed to create timer: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetTimerByMember(ctx context.Context, memberID uuid.UUID) (*PersonalTimer, error) {
	var t PersonalTimer

	err := s.pool.QueryRow(ctx, getTimerByMemberQuery, memberID).Scan(
		&t.ID,
		&t.MemberID,
		&t.RoomID,
		&t.Mode,
		&t.Status,
		&t.SegmentStartedAt,
		&t.TotalStudySeconds,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTimerNotFound
		}
		return nil, fmt.Errorf("failed to get timer: %w", err)
	}

	return &t, nil
}

func (s *PostgresStore) ExistsByMember(ctx context.Context, memberID uuid.UUID) (bool, error) {
	var exists bool

	err := s.pool.QueryRow(ctx, existsTimerByMemberQuery, memberID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check timer existence: %w", err)
	}

	return exists, nil
}

func (s *PostgresStore) UpdateTimer(ctx context.Context, t *PersonalTimer) error {
	result, err := s.pool.Exec(ctx, updateTimerQuery,
		t.ID,
		t.Mode,
		t.Status,
		t.SegmentStartedAt,
		t.TotalStudySeconds,
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to update timer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTimerNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteTimer(ctx context.Context, memberID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, deleteTimerQuery, memberID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to delete timer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTimerNotFound
	}

	return nil
}

func (s *PostgresStore) UpsertSetting(ctx context.Context, setting *PomodoroSetting) error {
	err := s.pool.QueryRow(ctx, upsertSettingQuery,
		setting.MemberID,
		setting.StudyMinutes,
		setting.RestMinutes,
	).Scan(&setting.ID, &setting.CreatedAt, &setting.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert pomodoro setting: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetSettingByMember(ctx context.Context, memberID uuid.UUID) (*PomodoroSetting, error) {
	var setting PomodoroSetting

	err := s.pool.QueryRow(ctx, getSettingByMemberQuery, memberID).Scan(
		&setting.ID,
		&setting.MemberID,
		&setting.StudyMinutes,
		&setting.RestMinutes,
		&setting.CreatedAt,
		&setting.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingMissing
		}
		return nil, fmt.Errorf("failed to get pomodoro setting: %w", err)
	}

	return &setting, nil
}

func (s *PostgresStore) AddHistory(ctx context.Context, memberID uuid.UUID, date time.Time, seconds int64) error {
	_, err := s.pool.Exec(ctx, addHistoryQuery, memberID, date, seconds)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to record study history: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetHistoryTotal(ctx context.Context, memberID uuid.UUID) (int64, error) {
	var total int64

	err := s.pool.QueryRow(ctx, historyTotalQuery, memberID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum study history: %w", err)
	}

	return total, nil
}

func (s *PostgresStore) GetHistoryForDate(ctx context.Context, memberID uuid.UUID, date time.Time) (int64, error) {
	var total int64

	err := s.pool.QueryRow(ctx, historyForDateQuery, memberID, date).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to get study history for date: %w", err)
	}

	return total, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, memberID uuid.UUID, from, to time.Time) ([]StudyHistory, error) {
	rows, err := s.pool.Query(ctx, listHistoryQuery, memberID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list study history: %w", err)
	}
	defer rows.Close()

	var history []StudyHistory
	for rows.Next() {
		var h StudyHistory
		if err := rows.Scan(
			&h.ID,
			&h.MemberID,
			&h.StudyDate,
			&h.TotalStudySeconds,
			&h.CreatedAt,
			&h.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan study history: %w", err)
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study history: %w", err)
	}

	return history, nil
}
