package chat

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

// RoomService is the REST surface the directory uses.
type RoomService interface {
	ListRooms(ctx context.Context) ([]core.Room, error)
	CreateRoom(ctx context.Context, name, description string) (core.Room, error)
}

// Directory caches the rooms visible to the user.
type Directory struct {
	rooms RoomService
	log   *zerolog.Logger

	mu    sync.RWMutex
	cache []core.Room
	err   error
}

// NewDirectory creates an empty directory.
func NewDirectory(rooms RoomService, logger *zerolog.Logger) *Directory {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Directory{rooms: rooms, log: logger}
}

// List fetches the rooms in server order and caches them. On failure the
// previous cache is kept and the error is remembered for Err.
func (d *Directory) List(ctx context.Context) ([]core.Room, error) {
	rooms, err := d.rooms.ListRooms(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
	if err != nil {
		d.log.Warn().Err(err).Msg("list rooms failed")
		return nil, err
	}
	d.cache = rooms
	return slices.Clone(rooms), nil
}

// Create validates and creates a room, then refreshes the directory.
func (d *Directory) Create(ctx context.Context, name, description string) (core.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Room{}, core.ErrEmptyName
	}

	room, err := d.rooms.CreateRoom(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return core.Room{}, err
	}
	d.log.Info().Str("room", room.Name).Int64("room_id", room.ID).Msg("room created")

	if _, err := d.List(ctx); err != nil {
		d.mu.Lock()
		if !slices.ContainsFunc(d.cache, func(r core.Room) bool { return r.ID == room.ID }) {
			d.cache = append(d.cache, room)
		}
		d.mu.Unlock()
	}
	return room, nil
}

// Rooms returns the cached rooms.
func (d *Directory) Rooms() []core.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.cache)
}

// Find looks a cached room up by name.
func (d *Directory) Find(name string) (core.Room, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i := slices.IndexFunc(d.cache, func(r core.Room) bool { return r.Name == name })
	if i < 0 {
		return core.Room{}, false
	}
	return d.cache[i], true
}

// Err returns the error of the last List, if it failed.
func (d *Directory) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}
