package devserver

import (
	"context"

	"github.com/rs/zerolog"
)

// Client is a socket subscribed to one room.
type Client struct {
	ID     string
	Room   string
	User   string
	Events chan []byte
}

// NewClient constructs a client with an initialized event channel.
func NewClient(id, room, user string) *Client {
	return &Client{
		ID:     id,
		Room:   room,
		User:   user,
		Events: make(chan []byte, 16),
	}
}

// room groups clients subscribed to the same channel.
type room struct {
	name    string
	clients map[*Client]struct{}
}

func newRoom(name string) *room {
	return &room{name: name, clients: make(map[*Client]struct{})}
}

func (r *room) broadcast(payload []byte) {
	for client := range r.clients {
		select {
		case client.Events <- payload:
		default:
			// Drop if slow consumer.
		}
	}
}

type broadcast struct {
	room    string
	payload []byte
}

// Hub fans pushed frames out to the sockets of a room. All membership
// changes happen on the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcasts chan broadcast
	done       chan struct{}
	rooms      map[string]*room
	log        *zerolog.Logger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcasts: make(chan broadcast),
		done:       make(chan struct{}),
		rooms:      make(map[string]*room),
		log:        logger,
	}
}

// Run processes hub requests until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, r := range h.rooms {
				for client := range r.clients {
					close(client.Events)
				}
			}
			h.rooms = map[string]*room{}
			return
		case client := <-h.register:
			r, ok := h.rooms[client.Room]
			if !ok {
				r = newRoom(client.Room)
				h.rooms[client.Room] = r
			}
			r.clients[client] = struct{}{}
			h.log.Debug().Str("room", client.Room).Str("client_id", client.ID).Msg("socket joined")
		case client := <-h.unregister:
			r, ok := h.rooms[client.Room]
			if !ok {
				continue
			}
			if _, member := r.clients[client]; !member {
				continue
			}
			delete(r.clients, client)
			close(client.Events)
			if len(r.clients) == 0 {
				delete(h.rooms, client.Room)
			}
			h.log.Debug().Str("room", client.Room).Str("client_id", client.ID).Msg("socket left")
		case b := <-h.broadcasts:
			if r, ok := h.rooms[b.room]; ok {
				r.broadcast(b.payload)
			}
		}
	}
}

// Register subscribes a client. It reports false if the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its event channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues payload for every socket in roomName.
func (h *Hub) Broadcast(roomName string, payload []byte) {
	select {
	case h.broadcasts <- broadcast{room: roomName, payload: payload}:
	case <-h.done:
	}
}
