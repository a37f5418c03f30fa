package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/realtime"
)

var (
	roomA = core.Room{ID: 1, Name: "farmers"}
	roomB = core.Room{ID: 2, Name: "orchards"}
)

func TestSelectLoadsHistoryAndActivates(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)

	st := h.ctrl.Status()
	if st.State != StateConnecting || !st.Selected || st.Room.ID != roomA.ID {
		t.Fatalf("unexpected status after select: %+v", st)
	}
	if len(h.rt.open()) != 1 || h.rt.last().room.Name != "farmers" {
		t.Fatalf("expected one channel keyed by room name")
	}

	h.history.resolve(roomA.ID, []core.Message{msgAt(1, 0, "a"), msgAt(2, time.Second, "b")}, nil)
	waitFor(t, "active", func() bool { return h.ctrl.Status().State == StateActive })

	if h.ctrl.Timeline().Len() != 2 || !h.ctrl.Status().HistoryLoaded {
		t.Fatalf("history not loaded: len=%d", h.ctrl.Timeline().Len())
	}
}

func TestFirstPushActivatesBeforeHistory(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)

	h.rt.last().push(msgAt(5, 0, "live"))
	waitFor(t, "active", func() bool { return h.ctrl.Status().State == StateActive })

	if !h.ctrl.Timeline().Contains(core.ServerMessageID(5)) {
		t.Fatalf("pushed message missing")
	}
	if h.ctrl.Status().HistoryLoaded {
		t.Fatalf("history reported loaded before it resolved")
	}
}

func TestAtMostOneChannel(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)
	chA := h.rt.last()
	h.selectRoom(t, roomB)
	chB := h.rt.last()

	if !chA.isClosed() {
		t.Fatalf("previous channel still open")
	}
	open := h.rt.open()
	if len(open) != 1 || open[0] != chB {
		t.Fatalf("expected exactly one open channel for %s", roomB.Name)
	}

	// A push that was already in flight on A must not land in B's timeline.
	h.ctrl.post(context.Background(), command{kind: cmdPush, epoch: 1, msg: msgAt(9, 0, "from A")})
	chB.push(msgAt(10, 0, "from B"))

	waitFor(t, "B message", func() bool { return h.ctrl.Timeline().Contains(core.ServerMessageID(10)) })
	if h.ctrl.Timeline().Contains(core.ServerMessageID(9)) {
		t.Fatalf("late push from the previous room appended")
	}
}

func TestStaleHistoryDiscarded(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)
	h.selectRoom(t, roomB)

	h.history.resolve(roomB.ID, []core.Message{msgAt(20, 0, "b")}, nil)
	waitFor(t, "B history", func() bool { return h.ctrl.Status().HistoryLoaded })

	h.history.resolve(roomA.ID, []core.Message{msgAt(10, 0, "a")}, nil)
	time.Sleep(50 * time.Millisecond)

	snap := h.ctrl.Timeline().Snapshot()
	if len(snap) != 1 || snap[0].ID != core.ServerMessageID(20) {
		t.Fatalf("stale history leaked into timeline: %v", ids(snap))
	}
}

func TestHistoryFailureIsSurfaced(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)
	h.rt.last().push(msgAt(3, 0, "live"))

	h.history.resolve(roomA.ID, nil, core.NetworkError("dial failed", errors.New("refused")))
	ev := mustEvent(t, h.ctrl.Events(), EventHistoryFailed)
	if !errors.Is(ev.Err, core.ErrNetwork) {
		t.Fatalf("unexpected error %v", ev.Err)
	}

	waitFor(t, "status error", func() bool { return h.ctrl.Status().HistoryErr != nil })
	if !h.ctrl.Timeline().Contains(core.ServerMessageID(3)) {
		t.Fatalf("realtime-only message dropped after history failure")
	}
}

func TestHistoryFailureWithOpenChannelActivates(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)

	h.rt.last().status(realtime.Status{State: realtime.StateOpen})
	waitFor(t, "channel open", func() bool { return h.ctrl.Status().Channel.State == realtime.StateOpen })

	h.history.resolve(roomA.ID, nil, core.ServerError(500, "boom"))
	waitFor(t, "active", func() bool { return h.ctrl.Status().State == StateActive })
}

func TestChannelFailureIsSurfaced(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)

	h.rt.last().status(realtime.Status{State: realtime.StateClosed, Attempt: 9, Err: core.NetworkError("gone", nil)})
	ev := mustEvent(t, h.ctrl.Events(), EventChannelFailed)
	if ev.Room.ID != roomA.ID || !errors.Is(ev.Err, core.ErrNetwork) {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestDeselectClosesChannel(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)
	h.history.resolve(roomA.ID, []core.Message{msgAt(1, 0, "a")}, nil)
	waitFor(t, "history", func() bool { return h.ctrl.Timeline().Len() == 1 })

	if err := h.ctrl.Deselect(context.Background()); err != nil {
		t.Fatalf("deselect: %v", err)
	}
	if len(h.rt.open()) != 0 {
		t.Fatalf("channel left open after deselect")
	}
	st := h.ctrl.Status()
	if st.State != StateIdle || st.Selected {
		t.Fatalf("unexpected status %+v", st)
	}
	if h.ctrl.Timeline().Len() != 0 {
		t.Fatalf("timeline not cleared")
	}
}

func TestRunCancelTearsDown(t *testing.T) {
	h := newHarness(t)
	h.selectRoom(t, roomA)

	h.cancel()
	<-h.stopped

	if len(h.rt.open()) != 0 {
		t.Fatalf("channel left open after teardown")
	}
	if err := h.ctrl.Select(context.Background(), roomB); !errors.Is(err, ErrControllerStopped) {
		t.Fatalf("expected ErrControllerStopped, got %v", err)
	}
}
