package checklist

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListByMemberAndDate(ctx context.Context, memberID uuid.UUID, date time.Time) ([]Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
}
