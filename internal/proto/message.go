package proto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

const (
	// FrameTypeChatMessage is the only realtime frame type the client acts on.
	FrameTypeChatMessage = "chat_message"
)

// Frame is the realtime payload pushed on a room channel.
type Frame struct {
	Type      string         `json:"type"`
	ID        core.MessageID `json:"id,omitempty"`
	Message   string         `json:"message,omitempty"`
	ImageURL  string         `json:"image_url,omitempty"`
	UserID    int64          `json:"user_id"`
	Username  string         `json:"username"`
	CreatedAt string         `json:"created_at,omitempty"`
}

// UserPayload is the nested sender object of REST messages and the /me body.
type UserPayload struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// RoomPayload is a room as returned by the chat API.
type RoomPayload struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// CreateRoomRequest is the body of POST /rooms/.
type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MessagePayload is a persisted message as returned by the chat API.
type MessagePayload struct {
	ID        core.MessageID `json:"id"`
	Content   string         `json:"content,omitempty"`
	Image     string         `json:"image,omitempty"`
	User      UserPayload    `json:"user"`
	Room      int64          `json:"room,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// LoginRequest is the body of the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest is the body of the register endpoint.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// TokenResponse carries the issued tokens. Refresh is absent on refresh responses.
type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// RefreshRequest is the body of the refresh endpoint.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// DiseasePayload is an entry of the diseases endpoint.
type DiseasePayload struct {
	ID          FlexString `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
}

// DiseaseList accepts both `{"diseases": [...]}` and a bare array.
type DiseaseList []DiseasePayload

func (l *DiseaseList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []DiseasePayload
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var wrapped struct {
		Diseases []DiseasePayload `json:"diseases"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Diseases
	return nil
}

// PredictionPayload is the response of the predict endpoint.
type PredictionPayload struct {
	Disease          string             `json:"disease"`
	Confidence       float64            `json:"confidence"`
	Remedies         []string           `json:"remedies,omitempty"`
	OtherPredictions []CandidatePayload `json:"other_predictions"`
}

// CandidatePayload is one alternative diagnosis.
type CandidatePayload struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// ErrorResponse is the error body used by the backend emulator.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// ParseTime parses the backend's timestamp formats. Empty input yields the zero time.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	if sec, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	return time.Parse("2006-01-02T15:04:05.999999", value)
}

// FormatTime renders a timestamp the way the backend does.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
