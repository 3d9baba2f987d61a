package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Hub owns one room's chat state. All mutations go through its Run loop,
// so clients and broadcasts never race.
type Hub struct {
	roomID uuid.UUID

	// only the hub goroutine touches this map
	clients map[*Client]bool

	broadcast  chan *ChatMessage
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}

	// closed when Run returns; after that nobody listens on the
	// channels above, so senders must select on done too
	done chan struct{}

	// called from the hub goroutine when the last client leaves
	onEmpty func()

	store Store
	log   *slog.Logger
}

func NewHub(roomID uuid.UUID, store Store, log *slog.Logger) *Hub {
	return &Hub{
		roomID:     roomID,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *ChatMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		store:      store,
		log:        log,
	}
}

// Run is the hub's event loop; handles all state changes sequentially.
// The loop exits when the hub is shut down or its last client leaves.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)
			if len(h.clients) == 0 {
				h.retire()
				return
			}

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)
			// fanOut may have dropped the last slow client
			if len(h.clients) == 0 {
				h.retire()
				return
			}

		case <-h.shutdown:
			h.handleShutdown()
			return
		}
	}
}

func (h *Hub) retire() {
	h.log.Info("chat hub idle, retiring", "room_id", h.roomID)

	if h.onEmpty != nil {
		h.onEmpty()
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.clients[client] = true

	h.log.Info("chat client registered",
		"room_id", h.roomID,
		"member_id", client.memberID,
		"total_clients", len(h.clients),
	)

	h.fanOut(newEnter(h.roomID, client.memberID, client.username))
}

func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		h.log.Info("chat client unregistered",
			"room_id", h.roomID,
			"member_id", client.memberID,
			"remaining_clients", len(h.clients),
		)

		h.fanOut(newLeave(h.roomID, client.memberID))
	}
}

func (h *Hub) handleBroadcast(msg *ChatMessage) {
	if msg.Type == TypeTalk {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := h.store.SaveMessage(ctx, msg)
		cancel()
		if err != nil {
			h.log.Error("failed to persist chat message",
				"room_id", h.roomID, "error", err)
		}
	}

	h.fanOut(newTalk(msg))
}

func (h *Hub) fanOut(env *envelope) {
	env.Timestamp = time.Now().Unix()

	data, err := env.toJSON()
	if err != nil {
		h.log.Error("failed to marshal chat envelope", "error", err)
		return
	}

	for client := range h.clients {
		select {
		case client.send <- data:
		default:
			// slow client, drop the connection
			h.log.Warn("chat client buffer full, disconnecting",
				"member_id", client.memberID,
				"room_id", h.roomID,
			)
			h.handleUnregister(client)
		}
	}
}

func (h *Hub) handleShutdown() {
	h.log.Info("shutting down chat hub", "room_id", h.roomID)

	for client := range h.clients {
		close(client.send)
	}
	h.clients = nil
}

// Send queues a message for broadcast without blocking the caller.
func (h *Hub) Send(msg *ChatMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Error("chat broadcast channel full", "room_id", h.roomID)
	}
}

func (h *Hub) Shutdown() {
	close(h.shutdown)
}
