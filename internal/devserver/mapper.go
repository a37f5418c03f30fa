package devserver

import (
	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/proto"
	"github.com/sharanperla/Greenleaf-client/internal/store"
)

func roomPayload(r *store.Room) proto.RoomPayload {
	return proto.RoomToPayload(core.Room{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
	})
}

func messageFromStore(m *store.Message) core.Message {
	return core.Message{
		ID:        core.ServerMessageID(m.ID),
		RoomID:    m.RoomID,
		Content:   m.Content,
		Image:     m.Image,
		Sender:    core.Sender{ID: m.UserID, Username: m.Username},
		CreatedAt: m.CreatedAt,
	}
}

func messagePayload(m *store.Message) proto.MessagePayload {
	return proto.MessageToPayload(messageFromStore(m))
}

func userPayload(u *store.User) proto.UserPayload {
	return proto.UserPayload{ID: u.ID, Username: u.Username, Email: u.Email}
}
