package member

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool}
}

// CreateMember creates a new member in Postgres
func (s *PostgresStore) CreateMember(ctx context.Context, member *Member) error {
	query := `
		INSERT INTO members (id, email, username, password, bio, study_field, profile_image, level, total_exp, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	member.ID = uuid.New()
	now := time.Now()

	member.Level = 1
	member.TotalExp = 0
	member.CreatedAt = now
	member.UpdatedAt = now

	_, err := s.pool.Exec(ctx, query,
		member.ID,
		member.Email,
		member.Username,
		member.Password,
		member.Bio,
		member.StudyField,
		member.ProfileImage,
		member.Level,
		member.TotalExp,
		member.Deleted,
		member.CreatedAt,
		member.UpdatedAt,
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

// GetMemberByID retrieves a member with passed ID from Postgres
func (s *PostgresStore) GetMemberByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	query := `
		SELECT id, email, username, password, bio, study_field, profile_image, level, total_exp, deleted, created_at, updated_at
		FROM members
		WHERE id = $1 AND deleted = FALSE
	`
	return s.scanMember(s.pool.QueryRow(ctx, query, id))
}

// GetMemberByEmail retrieves a member by passed email from Postgres
func (s *PostgresStore) GetMemberByEmail(ctx context.Context, email string) (*Member, error) {
	query := `
		SELECT id, email, username, password, bio, study_field, profile_image, level, total_exp, deleted, created_at, updated_at
		FROM members
		WHERE email = $1 AND deleted = FALSE
	`
	return s.scanMember(s.pool.QueryRow(ctx, query, email))
}

func (s *PostgresStore) scanMember(row pgx.Row) (*Member, error) {
	member := &Member{}
	err := row.Scan(
		&member.ID,
		&member.Email,
		&member.Username,
		&member.Password,
		&member.Bio,
		&member.StudyField,
		&member.ProfileImage,
		&member.Level,
		&member.TotalExp,
		&member.Deleted,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return member, nil
}

// ExistsByEmail checks if a member with this email is registered
func (s *PostgresStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM members WHERE email = $1 AND deleted = FALSE)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}

	return exists, nil
}

// ExistsByUsername checks if a member with this username is registered
func (s *PostgresStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM members WHERE username = $1 AND deleted = FALSE)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}

	return exists, nil
}

// UpdateMember updates an existing member in Postgres
func (s *PostgresStore) UpdateMember(ctx context.Context, member *Member) error {
	query := `
		UPDATE members
		SET username = $2, password = $3, bio = $4, study_field = $5, updated_at = $6
		WHERE id = $1 AND deleted = FALSE
	`
	member.UpdatedAt = time.Now()

	result, err := s.pool.Exec(ctx, query,
		member.ID,
		member.Username,
		member.Password,
		member.Bio,
		member.StudyField,
		member.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// UpdateProgress writes level and total experience for a member
func (s *PostgresStore) UpdateProgress(ctx context.Context, id uuid.UUID, level, totalExp int) error {
	query := `
		UPDATE members
		SET level = $2, total_exp = $3, updated_at = $4
		WHERE id = $1 AND deleted = FALSE
	`

	result, err := s.pool.Exec(ctx, query, id, level, totalExp, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// UpdateProfileImage writes the S3 object name of the member's profile image
func (s *PostgresStore) UpdateProfileImage(ctx context.Context, id uuid.UUID, objectName string) error {
	query := `
		UPDATE members
		SET profile_image = $2, updated_at = $3
		WHERE id = $1 AND deleted = FALSE
	`

	result, err := s.pool.Exec(ctx, query, id, objectName, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update profile image: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}

// SoftDeleteMember marks a member as deleted without removing the row
func (s *PostgresStore) SoftDeleteMember(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE members
		SET deleted = TRUE, updated_at = $2
		WHERE id = $1 AND deleted = FALSE
	`

	result, err := s.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrMemberNotFound
	}

	return nil
}
