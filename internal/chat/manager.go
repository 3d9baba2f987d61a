package chat

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

var ErrChatClosed = errors.New("chat is shutting down")

// Manager keeps one hub per room, created lazily on first connection.
// Hubs retire themselves when their last client leaves, so idle rooms
// do not pin memory.
type Manager struct {
	hubs   sync.Map // map[uuid.UUID]*Hub
	closed atomic.Bool
	store  Store
	log    *slog.Logger
}

func NewManager(store Store, log *slog.Logger) *Manager {
	return &Manager{store: store, log: log}
}

func (m *Manager) GetOrCreateHub(roomID uuid.UUID) *Hub {
	if hub, ok := m.hubs.Load(roomID); ok {
		return hub.(*Hub)
	}

	hub := NewHub(roomID, m.store, m.log)
	hub.onEmpty = func() {
		m.hubs.CompareAndDelete(roomID, hub)
	}

	actual, loaded := m.hubs.LoadOrStore(roomID, hub)
	if !loaded {
		go hub.Run()
		m.log.Info("created chat hub", "room_id", roomID)
	}

	return actual.(*Hub)
}

// ServeWS upgrades the request and wires the client into the room's hub.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, memberID uuid.UUID, username string, roomID uuid.UUID) error {
	if m.closed.Load() {
		return ErrChatClosed
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // tighten in prod!
	})
	if err != nil {
		return err
	}

	client := m.registerClient(memberID, username, roomID, conn)

	ctx := context.Background()
	go client.writePump(ctx)
	go client.readPump(ctx)

	return nil
}

// registerClient joins the room's hub, retrying if the hub retired
// between lookup and registration.
func (m *Manager) registerClient(memberID uuid.UUID, username string, roomID uuid.UUID, conn *websocket.Conn) *Client {
	for {
		hub := m.GetOrCreateHub(roomID)
		client := NewClient(memberID, username, roomID, conn, hub, m.log)

		select {
		case hub.register <- client:
			return client
		case <-hub.done:
			m.hubs.CompareAndDelete(roomID, hub)
		}
	}
}

// Shutdown stops every hub and refuses new connections.
func (m *Manager) Shutdown() {
	m.closed.Store(true)

	m.hubs.Range(func(key, value any) bool {
		value.(*Hub).Shutdown()
		m.hubs.Delete(key)
		return true
	})
}
