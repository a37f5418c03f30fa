package core

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/sharanperla/Greenleaf-client/internal/utils"
)

// placeholderPrefix keeps client-minted ids out of the server id space.
const placeholderPrefix = "local:"

// MessageID identifies a message. Server ids are decimal strings; client
// placeholders carry the "local:" prefix.
type MessageID string

// NewPlaceholderID mints an id for a pushed message that arrived without one.
func NewPlaceholderID() MessageID {
	return MessageID(placeholderPrefix + utils.NewID())
}

// ServerMessageID formats a numeric server id.
func ServerMessageID(id int64) MessageID {
	return MessageID(strconv.FormatInt(id, 10))
}

// IsPlaceholder reports whether the id was minted by the client.
func (id MessageID) IsPlaceholder() bool {
	return strings.HasPrefix(string(id), placeholderPrefix)
}

// IsZero reports whether the id is empty.
func (id MessageID) IsZero() bool {
	return id == ""
}

func (id MessageID) String() string {
	return string(id)
}

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = MessageID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = MessageID(n.String())
	return nil
}

// MarshalJSON emits canonical numeric ids as numbers so they round-trip with
// the backend. Anything else, "007" or "+5" included, stays a string.
func (id MessageID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(string(id)), nil
	}
	return json.Marshal(string(id))
}

// Sender is the author of a message.
type Sender struct {
	ID       int64
	Username string
}

// Message is the domain model for a chat message.
type Message struct {
	ID        MessageID
	RoomID    int64
	Content   string
	Image     string
	Sender    Sender
	CreatedAt time.Time
}

// HasImage reports whether the message references an image.
func (m Message) HasImage() bool {
	return m.Image != ""
}

// Fingerprint is a secondary key used to match a placeholder against its
// server-confirmed copy: sender, timestamp, and payload.
func (m Message) Fingerprint() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strconv.FormatInt(m.Sender.ID, 10))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(strconv.FormatInt(m.CreatedAt.UnixMilli(), 10))
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(m.Content)
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(m.Image)
	return d.Sum64()
}
