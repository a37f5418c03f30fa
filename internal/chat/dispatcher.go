package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/api"
	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/media"
)

// MessageSender is the REST surface the dispatcher uses.
type MessageSender interface {
	SendMessage(ctx context.Context, roomID int64, content string) (core.Message, error)
	UploadImage(ctx context.Context, roomID int64, image api.Upload) (core.Message, error)
}

// MediaSource grants access to local images.
type MediaSource interface {
	Granted() bool
	Open(uri string) (media.Asset, []byte, error)
}

// Dispatcher posts outbound messages. Only the server echo reaches the
// timeline; nothing is shown before the server confirms it.
type Dispatcher struct {
	sender  MessageSender
	media   MediaSource
	session *Controller
	log     *zerolog.Logger
}

// NewDispatcher wires a dispatcher to the session it delivers echoes to.
func NewDispatcher(sender MessageSender, mediaSource MediaSource, session *Controller, logger *zerolog.Logger) *Dispatcher {
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Dispatcher{sender: sender, media: mediaSource, session: session, log: logger}
}

// SendText posts text to roomID, which must be the selected room.
func (d *Dispatcher) SendText(ctx context.Context, roomID int64, text string) (core.Message, error) {
	if strings.TrimSpace(text) == "" {
		return core.Message{}, core.ErrEmptyMessage
	}
	if err := d.checkActive(roomID); err != nil {
		return core.Message{}, err
	}

	msg, err := d.sender.SendMessage(ctx, roomID, text)
	if err != nil {
		d.log.Warn().Err(err).Int64("room_id", roomID).Msg("send message failed")
		return core.Message{}, err
	}
	return d.deliver(ctx, roomID, msg)
}

// SendImage uploads the image at imageURI to roomID. mimeType may be empty, in
// which case the detected type is used.
func (d *Dispatcher) SendImage(ctx context.Context, roomID int64, imageURI, mimeType string) (core.Message, error) {
	if d.media == nil || !d.media.Granted() {
		return core.Message{}, core.ErrMediaDenied
	}
	if err := d.checkActive(roomID); err != nil {
		return core.Message{}, err
	}

	asset, data, err := d.media.Open(imageURI)
	if err != nil {
		return core.Message{}, err
	}
	if mimeType == "" {
		mimeType = asset.MIMEType
	}

	msg, err := d.sender.UploadImage(ctx, roomID, api.Upload{
		Filename: asset.Name,
		MIMEType: mimeType,
		Data:     data,
	})
	if err != nil {
		d.log.Warn().Err(err).Int64("room_id", roomID).Msg("upload image failed")
		return core.Message{}, err
	}
	return d.deliver(ctx, roomID, msg)
}

func (d *Dispatcher) checkActive(roomID int64) error {
	st := d.session.Status()
	if !st.Selected || st.Room.ID != roomID {
		return core.ErrNoActiveRoom
	}
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, roomID int64, msg core.Message) (core.Message, error) {
	if msg.RoomID == 0 {
		msg.RoomID = roomID
	}
	appended, err := d.session.deliverEcho(ctx, roomID, msg)
	if err != nil {
		// The server has the message; it will show up with the next history load.
		d.log.Debug().Err(err).Str("id", msg.ID.String()).Msg("echo not delivered")
		return msg, nil
	}
	d.log.Debug().Str("id", msg.ID.String()).Bool("appended", appended).Msg("message sent")
	return msg, nil
}
