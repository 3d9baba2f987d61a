package levelup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrMemberNotFound = errors.New("member not found")

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool}
}

// GetProgress reads the level columns of a member's row
func (s *PostgresStore) GetProgress(ctx context.Context, memberID uuid.UUID) (*Progress, error) {
	query := `
		SELECT id, username, level, total_exp
		FROM members
		WHERE id = $1 AND deleted = FALSE
	`

	progress := &Progress{}
	err := s.pool.QueryRow(ctx, query, memberID).Scan(
		&progress.MemberID,
		&progress.Username,
		&progress.Level,
		&progress.TotalExp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	return progress, nil
}

// UpdateProgress writes the level columns of a member's row
func (s *PostgresStore) UpdateProgress(ctx context.Context, memberID uuid.UUID, level, totalExp int) error {
	query := `
		UPDATE members
		SET level = $2, total_exp = $3, updated_at = $4
		WHERE id = $1 AND deleted = FALSE
	`

	result, err := s.pool.Exec(ctx, query, memberID, level, totalExp, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}
