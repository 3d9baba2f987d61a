package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createSessionQuery = `
		INSERT INTO study_sessions (member_id, study_context, room_id, start_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	getActiveByMemberQuery = `
		SELECT id, member_id, study_context, room_id, start_time, end_time, study_minutes, created_at, updated_at
		FROM study_sessions
		WHERE member_id = $1 AND end_time IS NULL
	`

	closeSessionQuery = `
		UPDATE study_sessions
		SET end_time = $2, study_minutes = $3, updated_at = NOW()
		WHERE id = $1 AND end_time IS NULL
	`

	listByMemberQuery = `
		SELECT id, member_id, study_context, room_id, start_time, end_time, study_minutes, created_at, updated_at
		FROM study_sessions
		WHERE member_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *StudySession) error {
	err := s.pool.QueryRow(ctx, createSessionQuery,
		sess.MemberID,
		sess.StudyContext,
		sess.RoomID,
		sess.StartTime,
	).Scan(&sess.ID, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create study session: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetActiveByMember(ctx context.Context, memberID uuid.UUID) (*StudySession, error) {
	var sess StudySession

	err := s.pool.QueryRow(ctx, getActiveByMemberQuery, memberID).Scan(
		&sess.ID,
		&sess.MemberID,
		&sess.StudyContext,
		&sess.RoomID,
		&sess.StartTime,
		&sess.EndTime,
		&sess.StudyMinutes,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}

	return &sess, nil
}

func (s *PostgresStore) CloseSession(ctx context.Context, id uuid.UUID, endTime time.Time, studyMinutes int) error {
	result, err := s.pool.Exec(ctx, closeSessionQuery, id, endTime, studyMinutes)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to close session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSessionEnded
	}

	return nil
}

func (s *PostgresStore) ListByMember(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]StudySession, error) {
	rows, err := s.pool.Query(ctx, listByMemberQuery, memberID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []StudySession
	for rows.Next() {
		var sess StudySession
		if err := rows.Scan(
			&sess.ID,
			&sess.MemberID,
			&sess.StudyContext,
			&sess.RoomID,
			&sess.StartTime,
			&sess.EndTime,
			&sess.StudyMinutes,
			&sess.CreatedAt,
			&sess.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}
