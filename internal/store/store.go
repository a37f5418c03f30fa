package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("already exists")
)

// User represents a backend account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Room represents a chat room.
type Room struct {
	ID          int64
	Name        string
	Description string
	CreatedBy   int64
	CreatedAt   time.Time
}

// Message represents a persisted chat message. Exactly one of Content and
// Image is normally set.
type Message struct {
	ID        int64
	RoomID    int64
	UserID    int64
	Username  string
	Content   string
	Image     string
	CreatedAt time.Time
}

// Disease is an entry of the reference catalog.
type Disease struct {
	ID          int64
	Name        string
	Description string
	Remedies    string
}

// KeyValueStore persists small string values such as credentials.
type KeyValueStore interface {
	// GetItem returns the value for key and whether it was present.
	GetItem(ctx context.Context, key string) (string, bool, error)

	// SetItems writes all pairs atomically.
	SetItems(ctx context.Context, items map[string]string) error

	// RemoveItems deletes the given keys; missing keys are ignored.
	RemoveItems(ctx context.Context, keys ...string) error
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room.
	CreateRoom(ctx context.Context, name, description string, createdBy int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// GetRoomByName retrieves a room by name.
	GetRoomByName(ctx context.Context, name string) (*Room, error)

	// ListRooms lists all rooms in creation order.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves messages from a room in chronological order.
	// If beforeID is provided, returns messages older than that ID.
	ListMessages(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*Message, error)
}

// DiseaseStore handles the disease catalog.
type DiseaseStore interface {
	// ListDiseases returns the catalog ordered by name.
	ListDiseases(ctx context.Context) ([]*Disease, error)

	// UpsertDisease inserts or replaces a catalog entry by name.
	UpsertDisease(ctx context.Context, d *Disease) error
}

// Store aggregates all storage interfaces.
type Store interface {
	KeyValueStore
	UserStore
	RoomStore
	MessageStore
	DiseaseStore

	// Close closes the underlying database connection.
	Close() error
}
