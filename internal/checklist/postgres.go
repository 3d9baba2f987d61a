package checklist

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
	createItemQuery = `
		INSERT INTO checklist_items (member_id, content, item_date)
		VALUES ($1, $2, $3)
		RETURNING id, completed, created_at, updated_at
	`

	getItemQuery = `
		SELECT id, member_id, content, item_date, completed, created_at, updated_at
		FROM checklist_items
		WHERE id = $1
	`

	listByMemberAndDateQuery = `
		SELECT id, member_id, content, item_date, completed, created_at, updated_at
		FROM checklist_items
		WHERE member_id = $1 AND item_date = $2
		ORDER BY created_at
	`

	updateItemQuery = `
		UPDATE checklist_items
		SET content = $2, completed = $3, updated_at = NOW()
		WHERE id = $1
	`

	deleteItemQuery = `
		DELETE FROM checklist_items WHERE id = $1
	`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateItem(ctx context.Context, item *Item) error {
	err := s.pool.QueryRow(ctx, createItemQuery,
		item.MemberID,
		item.Content,
		item.ItemDate,
	).Scan(&item.ID, &item.Completed, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create checklist item: %w", err)
	}

	return nil
}

func (s *PostgresStore) GetItem(ctx context.Context, id uuid.UUID) (*Item, error) {
	var item Item

	err := s.pool.QueryRow(ctx, getItemQuery, id).Scan(
		&item.ID,
		&item.MemberID,
		&item.Content,
		&item.ItemDate,
		&item.Completed,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get checklist item: %w", err)
	}

	return &item, nil
}

func (s *PostgresStore) ListByMemberAndDate(ctx context.Context, memberID uuid.UUID, date time.Time) ([]Item, error) {
	rows, err := s.pool.Query(ctx, listByMemberAndDateQuery, memberID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(
			&item.ID,
			&item.MemberID,
			&item.Content,
			&item.ItemDate,
			&item.Completed,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checklist items: %w", err)
	}

	return items, nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, item *Item) error {
	result, err := s.pool.Exec(ctx, updateItemQuery, item.ID, item.Content, item.Completed)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to update checklist item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteItem(ctx context.Context, id uuid.UUID) error {
	result, err := s.pool.Exec(ctx, deleteItemQuery, id)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to delete checklist item: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrItemNotFound
	}

	return nil
}
