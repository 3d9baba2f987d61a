package chat

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	SaveMessage(ctx context.Context, msg *ChatMessage) error
	ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]ChatMessage, error)
}
