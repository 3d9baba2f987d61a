package chat

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	TypeEnter MessageType = "ENTER"
	TypeTalk  MessageType = "TALK"
	TypeLeave MessageType = "LEAVE"
)

// ChatMessage is one line in a room's chat. TALK messages are persisted;
// ENTER/LEAVE are broadcast only.
type ChatMessage struct {
	ID         uuid.UUID   `json:"id"`
	RoomID     uuid.UUID   `json:"room_id"`
	SenderID   uuid.UUID   `json:"sender_id"`
	SenderName string      `json:"sender_name"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}

// inbound is what a connected client sends over the socket
type inbound struct {
	Content string `json:"content"`
}

// envelope is the wire format for everything the server pushes
type envelope struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func (e *envelope) toJSON() ([]byte, error) {
	return json.Marshal(e)
}

func newTalk(msg *ChatMessage) *envelope {
	return &envelope{Type: TypeTalk, Data: msg}
}

func newEnter(roomID, memberID uuid.UUID, username string) *envelope {
	return &envelope{
		Type: TypeEnter,
		Data: map[string]any{
			"room_id":   roomID,
			"member_id": memberID,
			"username":  username,
		},
	}
}

func newLeave(roomID, memberID uuid.UUID) *envelope {
	return &envelope{
		Type: TypeLeave,
		Data: map[string]any{
			"room_id":   roomID,
			"member_id": memberID,
		},
	}
}
