package chat

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []ChatMessage
}

func (f *fakeStore) SaveMessage(_ context.Context, msg *ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, *msg)
	return nil
}

func (f *fakeStore) ListRecent(_ context.Context, _ uuid.UUID, _ int) ([]ChatMessage, error) {
	return nil, nil
}

func (f *fakeStore) savedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient builds a client without a socket; only the hub-facing
// fields matter here.
func newTestClient(hub *Hub) *Client {
	return &Client{
		memberID: uuid.New(),
		username: "tester",
		roomID:   hub.roomID,
		hub:      hub,
		send:     make(chan []byte, 16),
		log:      discardLog(),
	}
}

func waitDone(t *testing.T, hub *Hub) {
	t.Helper()
	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
}

func TestHubRetiresWhenLastClientLeaves(t *testing.T) {
	m := NewManager(&fakeStore{}, discardLog())
	roomID := uuid.New()

	hub := m.GetOrCreateHub(roomID)
	client := newTestClient(hub)
	hub.register <- client
	hub.unregister <- client

	waitDone(t, hub)

	_, ok := m.hubs.Load(roomID)
	assert.False(t, ok, "retired hub must leave the manager map")
}

func TestStragglerUnregisterDoesNotBlock(t *testing.T) {
	m := NewManager(&fakeStore{}, discardLog())
	hub := m.GetOrCreateHub(uuid.New())

	client := newTestClient(hub)
	hub.register <- client
	hub.unregister <- client
	waitDone(t, hub)

	// mirrors the read pump's exit path on an already-stopped hub
	released := make(chan struct{})
	go func() {
		select {
		case hub.unregister <- client:
		case <-hub.done:
		}
		close(released)
	}()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked on a stopped hub")
	}
}

func TestManagerRecreatesHubAfterRetire(t *testing.T) {
	m := NewManager(&fakeStore{}, discardLog())
	roomID := uuid.New()

	first := m.GetOrCreateHub(roomID)
	client := newTestClient(first)
	first.register <- client
	first.unregister <- client
	waitDone(t, first)

	second := m.GetOrCreateHub(roomID)
	require.NotSame(t, first, second)

	// the fresh hub accepts clients
	next := newTestClient(second)
	select {
	case second.register <- next:
	case <-time.After(time.Second):
		t.Fatal("new hub did not accept a client")
	}
	second.unregister <- next
	waitDone(t, second)
}

func TestHubPersistsAndFansOutTalk(t *testing.T) {
	store := &fakeStore{}
	m := NewManager(store, discardLog())
	hub := m.GetOrCreateHub(uuid.New())

	a := newTestClient(hub)
	b := newTestClient(hub)
	hub.register <- a
	hub.register <- b

	// drain ENTER frames so only the TALK remains interesting
	drain := func(c *Client) {
		for len(c.send) > 0 {
			<-c.send
		}
	}
	drain(a)
	drain(b)

	hub.Send(&ChatMessage{
		RoomID:     hub.roomID,
		SenderID:   a.memberID,
		SenderName: a.username,
		Type:       TypeTalk,
		Content:    "hello",
		CreatedAt:  time.Now(),
	})

	require.Eventually(t, func() bool {
		return store.savedCount() == 1 && len(a.send) > 0 && len(b.send) > 0
	}, time.Second, 10*time.Millisecond)

	hub.unregister <- a
	hub.unregister <- b
	waitDone(t, hub)
}

func TestShutdownRefusesNewConnections(t *testing.T) {
	m := NewManager(&fakeStore{}, discardLog())
	hub := m.GetOrCreateHub(uuid.New())
	client := newTestClient(hub)
	hub.register <- client

	m.Shutdown()
	waitDone(t, hub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	err := m.ServeWS(rec, req, uuid.New(), "tester", uuid.New())
	assert.ErrorIs(t, err, ErrChatClosed)
}
