package proto

import (
	"fmt"
	"time"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

// RoomFromPayload converts a REST room.
func RoomFromPayload(p RoomPayload) core.Room {
	created, _ := ParseTime(p.CreatedAt)
	return core.Room{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   created,
	}
}

// RoomToPayload converts a domain room for the wire.
func RoomToPayload(r core.Room) RoomPayload {
	return RoomPayload{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   FormatTime(r.CreatedAt),
	}
}

// MessageFromPayload converts a REST message. resolve maps relative image
// paths to absolute URLs and may be nil.
func MessageFromPayload(p MessagePayload, resolve func(string) string) (core.Message, error) {
	created, err := ParseTime(p.CreatedAt)
	if err != nil {
		return core.Message{}, fmt.Errorf("parse created_at %q: %w", p.CreatedAt, err)
	}
	image := p.Image
	if image != "" && resolve != nil {
		image = resolve(image)
	}
	return core.Message{
		ID:        p.ID,
		RoomID:    p.Room,
		Content:   p.Content,
		Image:     image,
		Sender:    core.Sender{ID: p.User.ID, Username: p.User.Username},
		CreatedAt: created,
	}, nil
}

// MessageToPayload converts a domain message for the wire.
func MessageToPayload(m core.Message) MessagePayload {
	return MessagePayload{
		ID:        m.ID,
		Content:   m.Content,
		Image:     m.Image,
		User:      UserPayload{ID: m.Sender.ID, Username: m.Sender.Username},
		Room:      m.RoomID,
		CreatedAt: FormatTime(m.CreatedAt),
	}
}

// MessageFromFrame converts a chat_message frame. A frame without an id gets
// a placeholder id; a frame without a timestamp is stamped with received.
func MessageFromFrame(f Frame, received time.Time, resolve func(string) string) (core.Message, error) {
	if f.Type != FrameTypeChatMessage {
		return core.Message{}, fmt.Errorf("unexpected frame type %q", f.Type)
	}
	created, err := ParseTime(f.CreatedAt)
	if err != nil {
		return core.Message{}, fmt.Errorf("parse created_at %q: %w", f.CreatedAt, err)
	}
	if created.IsZero() {
		created = received
	}
	id := f.ID
	if id.IsZero() {
		id = core.NewPlaceholderID()
	}
	image := f.ImageURL
	if image != "" && resolve != nil {
		image = resolve(image)
	}
	return core.Message{
		ID:        id,
		Content:   f.Message,
		Image:     image,
		Sender:    core.Sender{ID: f.UserID, Username: f.Username},
		CreatedAt: created,
	}, nil
}

// FrameFromMessage builds the push frame for a persisted message.
func FrameFromMessage(m core.Message) Frame {
	return Frame{
		Type:      FrameTypeChatMessage,
		ID:        m.ID,
		Message:   m.Content,
		ImageURL:  m.Image,
		UserID:    m.Sender.ID,
		Username:  m.Sender.Username,
		CreatedAt: FormatTime(m.CreatedAt),
	}
}

// UserFromPayload converts the /me body.
func UserFromPayload(p UserPayload) core.User {
	return core.User{ID: p.ID, Username: p.Username, Email: p.Email}
}

// DiseasesFromList converts the diseases body.
func DiseasesFromList(l DiseaseList) []core.Disease {
	out := make([]core.Disease, 0, len(l))
	for _, d := range l {
		out = append(out, core.Disease{ID: string(d.ID), Name: d.Name, Description: d.Description})
	}
	return out
}

// PredictionFromPayload converts the predict body.
func PredictionFromPayload(p PredictionPayload) core.Prediction {
	others := make([]core.Candidate, 0, len(p.OtherPredictions))
	for _, c := range p.OtherPredictions {
		others = append(others, core.Candidate{Disease: c.Disease, Confidence: c.Confidence})
	}
	return core.Prediction{
		Disease:          p.Disease,
		Confidence:       p.Confidence,
		Remedies:         p.Remedies,
		OtherPredictions: others,
	}
}
