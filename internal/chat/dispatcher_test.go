package chat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sharanperla/Greenleaf-client/internal/api"
	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/media"
)

type fakeSender struct {
	calls  atomic.Int32
	sent   string
	echo   core.Message
	err    error
	upload api.Upload
}

func (f *fakeSender) SendMessage(_ context.Context, roomID int64, content string) (core.Message, error) {
	f.calls.Add(1)
	f.sent = content
	if f.err != nil {
		return core.Message{}, f.err
	}
	return f.echo, nil
}

func (f *fakeSender) UploadImage(_ context.Context, roomID int64, image api.Upload) (core.Message, error) {
	f.calls.Add(1)
	f.upload = image
	if f.err != nil {
		return core.Message{}, f.err
	}
	return f.echo, nil
}

type fakeMedia struct {
	granted bool
}

func (f fakeMedia) Granted() bool { return f.granted }

func (f fakeMedia) Open(uri string) (media.Asset, []byte, error) {
	return media.Asset{URI: uri, Name: "leaf.png", MIMEType: "image/png"}, []byte("png"), nil
}

var farmers = core.Room{ID: 7, Name: "farmers"}

func TestSendTextRoundtrip(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, farmers)

	sender := &fakeSender{echo: core.Message{
		ID:        core.ServerMessageID(101),
		Content:   "hello",
		Sender:    core.Sender{ID: 2, Username: "ana"},
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}}
	d := NewDispatcher(sender, fakeMedia{}, h.ctrl, nil)

	msg, err := d.SendText(context.Background(), 7, "  hello ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.RoomID != 7 {
		t.Fatalf("echo room not set: %+v", msg)
	}
	if sender.sent != "  hello " {
		t.Fatalf("text was altered before sending: %q", sender.sent)
	}

	// The same message also arrives on the channel.
	h.rt.last().push(sender.echo)
	waitFor(t, "active", func() bool { return h.ctrl.Status().State == StateActive })

	snap := h.ctrl.Timeline().Snapshot()
	if len(snap) != 1 || snap[0].ID != core.ServerMessageID(101) || snap[0].Content != "hello" {
		t.Fatalf("expected exactly one message 101, got %+v", snap)
	}
}

func TestSendTextRejectsBeforeCall(t *testing.T) {
	h := newHarness(t)
	sender := &fakeSender{}
	d := NewDispatcher(sender, fakeMedia{}, h.ctrl, nil)

	if _, err := d.SendText(context.Background(), 7, "hi"); !errors.Is(err, core.ErrNoActiveRoom) {
		t.Fatalf("expected no active room, got %v", err)
	}

	h.selectRoom(t, farmers)
	if _, err := d.SendText(context.Background(), 7, "   "); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := d.SendText(context.Background(), 8, "hi"); !errors.Is(err, core.ErrNoActiveRoom) {
		t.Fatalf("expected no active room for another room, got %v", err)
	}
	if sender.calls.Load() != 0 {
		t.Fatalf("rejected sends made %d calls", sender.calls.Load())
	}
}

func TestSendTextFailureDoesNotAppend(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, farmers)
	sender := &fakeSender{err: core.ServerError(500, "boom")}
	d := NewDispatcher(sender, fakeMedia{}, h.ctrl, nil)

	if _, err := d.SendText(context.Background(), 7, "hi"); !errors.Is(err, core.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	if h.ctrl.Timeline().Len() != 0 {
		t.Fatalf("failed send appended a message")
	}
}

func TestSendImageWithoutPermission(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, farmers)
	sender := &fakeSender{}
	d := NewDispatcher(sender, fakeMedia{granted: false}, h.ctrl, nil)

	_, err := d.SendImage(context.Background(), 7, "/tmp/leaf.png", "image/png")
	if !errors.Is(err, core.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if errors.Is(err, core.ErrNetwork) {
		t.Fatalf("permission error must be distinct from network errors")
	}
	if sender.calls.Load() != 0 {
		t.Fatalf("denied send made a call")
	}
}

func TestSendImageAppendsEcho(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, farmers)
	sender := &fakeSender{echo: core.Message{
		ID:        core.ServerMessageID(55),
		Image:     "http://api.test/media/x.png",
		Sender:    core.Sender{ID: 2, Username: "ana"},
		CreatedAt: time.Now(),
	}}
	d := NewDispatcher(sender, fakeMedia{granted: true}, h.ctrl, nil)

	if _, err := d.SendImage(context.Background(), 7, "file:///tmp/leaf.png", ""); err != nil {
		t.Fatalf("send image: %v", err)
	}
	if sender.upload.MIMEType != "image/png" || sender.upload.Filename != "leaf.png" {
		t.Fatalf("unexpected upload %+v", sender.upload)
	}
	if !h.ctrl.Timeline().Contains(core.ServerMessageID(55)) {
		t.Fatalf("image echo not appended")
	}
}

func TestEchoForDeselectedRoomIsDropped(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, farmers)
	h.selectRoom(t, roomB)

	appended, err := h.ctrl.deliverEcho(context.Background(), farmers.ID, msgAt(77, 0, "late"))
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if appended || h.ctrl.Timeline().Len() != 0 {
		t.Fatalf("echo for a room no longer selected was appended")
	}
}
