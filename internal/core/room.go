package core

import "time"

// Room is a named chat channel with persisted history.
// Name doubles as the realtime channel key.
type Room struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}
