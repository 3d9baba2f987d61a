package checklist

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrItemNotFound = errors.New("checklist item not found")

// Item is one entry on a member's daily study checklist.
type Item struct {
	ID        uuid.UUID `json:"id"`
	MemberID  uuid.UUID `json:"member_id"`
	Content   string    `json:"content"`
	ItemDate  time.Time `json:"item_date"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateItemRequest struct {
	Content  string `json:"content"`
	ItemDate string `json:"item_date"`
}

type UpdateItemRequest struct {
	Content   *string `json:"content,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}
