package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/proto"
)

const (
	pathRooms        = "/api/chat/rooms/"
	pathRoomMessages = "/api/chat/rooms/%d/messages/"
	pathMessages     = "/api/chat/messages/"
	pathUploadImage  = "/api/chat/messages/upload_image/"
)

// ListRooms fetches all rooms visible to the authenticated user, in server order.
func (c *Client) ListRooms(ctx context.Context) ([]core.Room, error) {
	var out []proto.RoomPayload
	if err := c.do(ctx, "list rooms", request{method: http.MethodGet, path: pathRooms}, &out); err != nil {
		return nil, err
	}
	rooms := make([]core.Room, 0, len(out))
	for _, p := range out {
		rooms = append(rooms, proto.RoomFromPayload(p))
	}
	return rooms, nil
}

// CreateRoom creates a room.
func (c *Client) CreateRoom(ctx context.Context, name, description string) (core.Room, error) {
	req, err := jsonRequest(http.MethodPost, pathRooms, proto.CreateRoomRequest{Name: name, Description: description})
	if err != nil {
		return core.Room{}, err
	}
	var out proto.RoomPayload
	if err := c.do(ctx, "create room", req, &out); err != nil {
		return core.Room{}, err
	}
	return proto.RoomFromPayload(out), nil
}

// ListMessages fetches the stored history of a room.
func (c *Client) ListMessages(ctx context.Context, roomID int64) ([]core.Message, error) {
	path := fmt.Sprintf(pathRoomMessages, roomID)
	var out []proto.MessagePayload
	if err := c.do(ctx, "list messages", request{method: http.MethodGet, path: path}, &out); err != nil {
		return nil, err
	}
	messages := make([]core.Message, 0, len(out))
	for _, p := range out {
		msg, err := c.message(p, roomID, "list messages")
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SendMessage posts a text message and returns the server's record.
func (c *Client) SendMessage(ctx context.Context, roomID int64, content string) (core.Message, error) {
	req, err := multipartRequest(pathMessages, []formField{
		{name: "content", value: content},
		{name: "room", value: strconv.FormatInt(roomID, 10)},
	}, "", nil)
	if err != nil {
		return core.Message{}, err
	}
	var out proto.MessagePayload
	if err := c.do(ctx, "send message", req, &out); err != nil {
		return core.Message{}, err
	}
	return c.message(out, roomID, "send message")
}

// UploadImage posts an image message and returns the server's record.
func (c *Client) UploadImage(ctx context.Context, roomID int64, image Upload) (core.Message, error) {
	req, err := multipartRequest(pathUploadImage, []formField{
		{name: "room", value: strconv.FormatInt(roomID, 10)},
	}, "image", &image)
	if err != nil {
		return core.Message{}, err
	}
	var out proto.MessagePayload
	if err := c.do(ctx, "upload image", req, &out); err != nil {
		return core.Message{}, err
	}
	msg, err := c.message(out, roomID, "upload image")
	if err != nil {
		return core.Message{}, err
	}
	if !msg.HasImage() {
		return core.Message{}, core.ServerError(http.StatusOK, "upload image: response carries no image reference")
	}
	return msg, nil
}

func (c *Client) message(p proto.MessagePayload, roomID int64, op string) (core.Message, error) {
	msg, err := proto.MessageFromPayload(p, c.ResolveURL)
	if err != nil {
		ce := core.ServerError(http.StatusOK, op+": malformed message")
		ce.Err = err
		return core.Message{}, ce
	}
	if msg.ID.IsZero() {
		return core.Message{}, core.ServerError(http.StatusOK, op+": message without id")
	}
	if msg.RoomID == 0 {
		msg.RoomID = roomID
	}
	return msg, nil
}
