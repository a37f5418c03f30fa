package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/realtime"
)

// ErrControllerStopped is returned by requests made after Run has returned.
var ErrControllerStopped = errors.New("session controller stopped")

// SessionState is the controller's lifecycle state.
type SessionState int

const (
	StateIdle SessionState = iota
	StateConnecting
	StateActive
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("session_state(%d)", int(s))
	}
}

// HistoryFetcher loads the stored messages of a room.
type HistoryFetcher interface {
	ListMessages(ctx context.Context, roomID int64) ([]core.Message, error)
}

// Channel is a live realtime subscription.
type Channel interface {
	Status() realtime.Status
	Close()
}

// SubscribeFunc opens a channel for a room.
type SubscribeFunc func(ctx context.Context, room core.Room, cb realtime.Callbacks) Channel

// RealtimeSubscriber adapts a realtime.Dialer.
func RealtimeSubscriber(d *realtime.Dialer) SubscribeFunc {
	return func(ctx context.Context, room core.Room, cb realtime.Callbacks) Channel {
		return d.Subscribe(ctx, room, cb)
	}
}

// Status is a snapshot of the session.
type Status struct {
	State SessionState
	// Room is meaningful when Selected is true.
	Room          core.Room
	Selected      bool
	HistoryLoaded bool
	// HistoryErr is set when the last history fetch failed.
	HistoryErr error
	Channel    realtime.Status
}

// EventKind classifies controller notifications.
type EventKind int

const (
	// EventStateChanged reports a session state transition.
	EventStateChanged EventKind = iota
	// EventMessages reports that the timeline changed.
	EventMessages
	// EventHistoryFailed reports a failed history fetch.
	EventHistoryFailed
	// EventChannelStatus reports a realtime channel transition.
	EventChannelStatus
	// EventChannelFailed reports that the channel gave up reconnecting.
	EventChannelFailed
)

// Event is emitted to observers of the controller.
type Event struct {
	Kind    EventKind
	Room    core.Room
	State   SessionState
	Channel realtime.Status
	Err     error
}

type commandKind int

const (
	cmdSelect commandKind = iota
	cmdDeselect
	cmdHistory
	cmdPush
	cmdChannelStatus
	cmdEcho
)

type command struct {
	kind     commandKind
	epoch    uint64
	room     core.Room
	roomID   int64
	messages []core.Message
	msg      core.Message
	channel  realtime.Status
	err      error
	reply    chan bool
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	History        HistoryFetcher
	Subscribe      SubscribeFunc
	HistoryTimeout time.Duration
	Logger         *zerolog.Logger
}

// Controller owns the selected room, its realtime channel and its timeline.
// All state changes happen on the goroutine running Run.
type Controller struct {
	history        HistoryFetcher
	subscribe      SubscribeFunc
	historyTimeout time.Duration
	log            *zerolog.Logger

	timeline *Timeline
	inbox    chan command
	events   chan Event
	done     chan struct{}
	runOnce  sync.Once

	mu     sync.RWMutex
	status Status

	// Loop-owned.
	epoch   uint64
	channel Channel
}

// NewController builds a controller. Call Run to start it.
func NewController(opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	timeout := opts.HistoryTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Controller{
		history:        opts.History,
		subscribe:      opts.Subscribe,
		historyTimeout: timeout,
		log:            logger,
		timeline:       NewTimeline(),
		inbox:          make(chan command, 64),
		events:         make(chan Event, 64),
		done:           make(chan struct{}),
	}
}

// Timeline returns the message list for rendering.
func (c *Controller) Timeline() *Timeline {
	return c.timeline
}

// Events delivers notifications. Events are dropped while the buffer is full.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Status returns the current session snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Run processes requests until ctx is cancelled, then closes the channel and
// returns to Idle.
func (c *Controller) Run(ctx context.Context) error {
	started := false
	c.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("session controller already running")
	}
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.teardown()
			c.timeline.Reset()
			c.setStatus(Status{State: StateIdle})
			c.log.Debug().Msg("session controller stopped")
			return nil
		case cmd := <-c.inbox:
			c.handle(ctx, cmd)
		}
	}
}

// Select makes room the active session. Selecting the current room again
// reopens it, which serves as a manual retry.
func (c *Controller) Select(ctx context.Context, room core.Room) error {
	return c.request(ctx, command{kind: cmdSelect, room: room})
}

// Deselect closes the session and returns to Idle.
func (c *Controller) Deselect(ctx context.Context) error {
	return c.request(ctx, command{kind: cmdDeselect})
}

// deliverEcho hands a send result to the loop. It reports whether the message
// was appended, which only happens while roomID is still selected.
func (c *Controller) deliverEcho(ctx context.Context, roomID int64, msg core.Message) (bool, error) {
	reply := make(chan bool, 1)
	if err := c.send(ctx, command{kind: cmdEcho, roomID: roomID, msg: msg, reply: reply}); err != nil {
		return false, err
	}
	select {
	case appended := <-reply:
		return appended, nil
	case <-c.done:
		return false, ErrControllerStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (c *Controller) request(ctx context.Context, cmd command) error {
	cmd.reply = make(chan bool, 1)
	if err := c.send(ctx, cmd); err != nil {
		return err
	}
	select {
	case <-cmd.reply:
		return nil
	case <-c.done:
		return ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) send(ctx context.Context, cmd command) error {
	select {
	case c.inbox <- cmd:
		return nil
	case <-c.done:
		return ErrControllerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post is used by background producers; it gives up once ctx ends.
func (c *Controller) post(ctx context.Context, cmd command) {
	select {
	case c.inbox <- cmd:
	case <-ctx.Done():
	case <-c.done:
	}
}

func (c *Controller) handle(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdSelect:
		c.open(ctx, cmd.room)
		cmd.reply <- true
	case cmdDeselect:
		c.teardown()
		c.timeline.Reset()
		c.setStatus(Status{State: StateIdle})
		c.emit(Event{Kind: EventStateChanged, State: StateIdle})
		cmd.reply <- true
	case cmdHistory:
		c.onHistory(cmd)
	case cmdPush:
		c.onPush(cmd)
	case cmdChannelStatus:
		c.onChannelStatus(cmd)
	case cmdEcho:
		cmd.reply <- c.onEcho(cmd)
	}
}

// open tears down the previous session before starting the new one.
func (c *Controller) open(ctx context.Context, room core.Room) {
	c.teardown()
	c.timeline.Reset()

	epoch := c.epoch
	log := c.log.With().Str("room", room.Name).Int64("room_id", room.ID).Uint64("epoch", epoch).Logger()
	log.Debug().Msg("opening session")

	c.setStatus(Status{State: StateConnecting, Room: room, Selected: true})
	c.emit(Event{Kind: EventStateChanged, Room: room, State: StateConnecting})

	if c.subscribe != nil {
		c.channel = c.subscribe(ctx, room, realtime.Callbacks{
			OnMessage: func(cbCtx context.Context, msg core.Message) {
				c.post(cbCtx, command{kind: cmdPush, epoch: epoch, msg: msg})
			},
			OnStatus: func(cbCtx context.Context, st realtime.Status) {
				c.post(cbCtx, command{kind: cmdChannelStatus, epoch: epoch, channel: st})
			},
		})
	}

	if c.history != nil {
		go c.fetchHistory(ctx, epoch, room)
	}
}

func (c *Controller) fetchHistory(ctx context.Context, epoch uint64, room core.Room) {
	fetchCtx, cancel := context.WithTimeout(ctx, c.historyTimeout)
	defer cancel()

	messages, err := c.history.ListMessages(fetchCtx, room.ID)
	if err != nil && core.CodeOf(err) == "" && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
		err = core.TimeoutError("history fetch timed out", err)
	}
	c.post(ctx, command{kind: cmdHistory, epoch: epoch, roomID: room.ID, messages: messages, err: err})
}

// teardown closes the channel and invalidates everything issued under the
// current epoch.
func (c *Controller) teardown() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	c.epoch++
}

func (c *Controller) stale(cmd command) bool {
	if cmd.epoch == c.epoch {
		return false
	}
	c.log.Debug().Uint64("epoch", cmd.epoch).Uint64("current", c.epoch).Msg("discarding stale result")
	return true
}

func (c *Controller) onHistory(cmd command) {
	if c.stale(cmd) {
		return
	}
	st := c.Status()

	if cmd.err != nil {
		c.log.Warn().Err(cmd.err).Int64("room_id", cmd.roomID).Msg("history fetch failed")
		st.HistoryErr = cmd.err
		c.setStatus(st)
		c.emit(Event{Kind: EventHistoryFailed, Room: st.Room, State: st.State, Err: cmd.err})
		if st.Channel.State == realtime.StateOpen {
			c.activate()
		}
		return
	}

	c.timeline.Reconcile(cmd.messages)
	st.HistoryLoaded = true
	st.HistoryErr = nil
	c.setStatus(st)
	c.emit(Event{Kind: EventMessages, Room: st.Room, State: st.State})
	c.activate()
}

func (c *Controller) onPush(cmd command) {
	if c.stale(cmd) {
		return
	}
	if c.timeline.Append(cmd.msg) {
		st := c.Status()
		c.emit(Event{Kind: EventMessages, Room: st.Room, State: st.State})
	}
	c.activate()
}

func (c *Controller) onChannelStatus(cmd command) {
	if c.stale(cmd) {
		return
	}
	st := c.Status()
	st.Channel = cmd.channel
	c.setStatus(st)
	c.emit(Event{Kind: EventChannelStatus, Room: st.Room, State: st.State, Channel: cmd.channel, Err: cmd.channel.Err})

	if cmd.channel.Failed() {
		c.log.Warn().Err(cmd.channel.Err).Str("room", st.Room.Name).Msg("realtime channel failed")
		c.emit(Event{Kind: EventChannelFailed, Room: st.Room, State: st.State, Channel: cmd.channel, Err: cmd.channel.Err})
		return
	}
	if cmd.channel.State == realtime.StateOpen && st.HistoryErr != nil {
		c.activate()
	}
}

func (c *Controller) onEcho(cmd command) bool {
	st := c.Status()
	if !st.Selected || st.Room.ID != cmd.roomID {
		c.log.Debug().Int64("room_id", cmd.roomID).Msg("send echo for a room no longer selected")
		return false
	}
	if !c.timeline.Append(cmd.msg) {
		return false
	}
	c.emit(Event{Kind: EventMessages, Room: st.Room, State: st.State})
	return true
}

// activate moves Connecting to Active.
func (c *Controller) activate() {
	st := c.Status()
	if st.State != StateConnecting {
		return
	}
	st.State = StateActive
	c.setStatus(st)
	c.log.Debug().Str("room", st.Room.Name).Msg("session active")
	c.emit(Event{Kind: EventStateChanged, Room: st.Room, State: StateActive})
}

func (c *Controller) setStatus(st Status) {
	c.mu.Lock()
	c.status = st
	c.mu.Unlock()
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Drop if slow consumer.
	}
}
