package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	writeWait = 10 * time.Second

	// must be shorter than the server's read deadline expectations
	pingPeriod = 30 * time.Second

	maxMessageSize = 4096
)

// Client is one member's socket into a room's hub.
type Client struct {
	memberID uuid.UUID
	username string
	roomID   uuid.UUID
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
	log      *slog.Logger

	lastTalkTime time.Time
	mu           sync.Mutex
}

func NewClient(memberID uuid.UUID, username string, roomID uuid.UUID, conn *websocket.Conn, hub *Hub, log *slog.Logger) *Client {
	return &Client{
		memberID: memberID,
		username: username,
		roomID:   roomID,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, 256),
		log:      log,
	}
}

// readPump pumps inbound frames into the hub; runs in its own goroutine
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		// the hub may already be gone; never block on a dead loop
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.log.Debug("chat client disconnected",
					"member_id", c.memberID, "room_id", c.roomID)
			} else {
				c.log.Warn("chat read error",
					"member_id", c.memberID, "room_id", c.roomID, "error", err)
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Content == "" {
			continue
		}
		if !c.allowTalk() {
			continue
		}

		c.hub.Send(&ChatMessage{
			RoomID:     c.roomID,
			SenderID:   c.memberID,
			SenderName: c.username,
			Type:       TypeTalk,
			Content:    in.Content,
			CreatedAt:  time.Now(),
		})
	}
}

// writePump pumps hub messages to the socket; runs in its own goroutine
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusNormalClosure, "hub closed")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				c.log.Error("chat write failed",
					"member_id", c.memberID, "room_id", c.roomID, "error", err)
				return
			}

		case <-ticker.C:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(writeCtx)
			cancel()
			if err != nil {
				c.log.Warn("chat ping failed",
					"member_id", c.memberID, "room_id", c.roomID, "error", err)
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// allowTalk rate-limits to one message per second per client
func (c *Client) allowTalk() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.Sub(c.lastTalkTime) < time.Second {
		return false
	}
	c.lastTalkTime = now
	return true
}
