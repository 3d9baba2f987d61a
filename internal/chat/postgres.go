package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	saveMessageQuery = `
		INSERT INTO chat_messages (room_id, sender_id, sender_name, type, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	listRecentQuery = `
		SELECT id, room_id, sender_id, sender_name, type, content, created_at
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveMessage(ctx context.Context, msg *ChatMessage) error {
	err := s.pool.QueryRow(ctx, saveMessageQuery,
		msg.RoomID,
		msg.SenderID,
		msg.SenderName,
		msg.Type,
		msg.Content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]ChatMessage, error) {
	rows, err := s.pool.Query(ctx, listRecentQuery, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderName, &m.Type, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chat messages: %w", err)
	}

	return messages, nil
}
