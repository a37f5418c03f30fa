package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/realtime"
)

type historyResult struct {
	messages []core.Message
	err      error
}

// fakeHistory blocks each fetch until the test resolves it.
type fakeHistory struct {
	mu      sync.Mutex
	pending map[int64]chan historyResult
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{pending: make(map[int64]chan historyResult)}
}

func (f *fakeHistory) ch(roomID int64) chan historyResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.pending[roomID]
	if !ok {
		c = make(chan historyResult, 1)
		f.pending[roomID] = c
	}
	return c
}

func (f *fakeHistory) ListMessages(ctx context.Context, roomID int64) ([]core.Message, error) {
	select {
	case res := <-f.ch(roomID):
		return res.messages, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeHistory) resolve(roomID int64, messages []core.Message, err error) {
	f.ch(roomID) <- historyResult{messages: messages, err: err}
}

type fakeChannel struct {
	room   core.Room
	cb     realtime.Callbacks
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func (c *fakeChannel) Status() realtime.Status { return realtime.Status{State: realtime.StateOpen} }

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancel()
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) push(msg core.Message) {
	if c.cb.OnMessage != nil {
		c.cb.OnMessage(c.ctx, msg)
	}
}

func (c *fakeChannel) status(st realtime.Status) {
	if c.cb.OnStatus != nil {
		c.cb.OnStatus(c.ctx, st)
	}
}

type fakeRealtime struct {
	mu       sync.Mutex
	channels []*fakeChannel
}

func (f *fakeRealtime) subscribe(ctx context.Context, room core.Room, cb realtime.Callbacks) Channel {
	ctx, cancel := context.WithCancel(ctx)
	ch := &fakeChannel{room: room, cb: cb, ctx: ctx, cancel: cancel}
	f.mu.Lock()
	f.channels = append(f.channels, ch)
	f.mu.Unlock()
	return ch
}

func (f *fakeRealtime) last() *fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channels[len(f.channels)-1]
}

func (f *fakeRealtime) open() []*fakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*fakeChannel
	for _, ch := range f.channels {
		if !ch.isClosed() {
			out = append(out, ch)
		}
	}
	return out
}

type harness struct {
	ctrl    *Controller
	history *fakeHistory
	rt      *fakeRealtime
	cancel  context.CancelFunc
	stopped chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{history: newFakeHistory(), rt: &fakeRealtime{}, stopped: make(chan struct{})}
	h.ctrl = NewController(ControllerOptions{
		History:        h.history,
		Subscribe:      h.rt.subscribe,
		HistoryTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		defer close(h.stopped)
		_ = h.ctrl.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-h.stopped
	})
	return h
}

func (h *harness) selectRoom(t *testing.T, room core.Room) {
	t.Helper()
	if err := h.ctrl.Select(context.Background(), room); err != nil {
		t.Fatalf("select %s: %v", room.Name, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func mustEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return Event{}
}
