package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/proto"
)

// readLimit caps a single inbound frame.
const readLimit = 1 << 20

// Callbacks receive channel activity. The context is cancelled when the
// subscription closes; callbacks that hand work elsewhere should select on it.
type Callbacks struct {
	OnMessage func(ctx context.Context, msg core.Message)
	OnStatus  func(ctx context.Context, st Status)
}

// Subscription is a live channel for one room.
type Subscription struct {
	dialer *Dialer
	room   core.Room
	url    string
	cb     Callbacks
	log    *zerolog.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	status Status
}

// Status returns the latest lifecycle status.
func (s *Subscription) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done is closed once the subscription has stopped, by Close or by giving up.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the channel and waits for its goroutine. It is safe to call
// more than once.
func (s *Subscription) Close() {
	s.closeOnce.Do(s.cancel)
	<-s.done
}

func (s *Subscription) setStatus(ctx context.Context, st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if s.cb.OnStatus != nil {
		s.cb.OnStatus(ctx, st)
	}
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer func() {
		s.mu.Lock()
		if s.status.State != StateClosed {
			s.status = Status{State: StateClosed}
		}
		s.mu.Unlock()
	}()

	opts := s.dialer.opts
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.InitialInterval
	b.MaxInterval = opts.MaxInterval
	b.Reset()

	failures := 0
	for {
		s.setStatus(ctx, Status{State: StateConnecting, Attempt: failures})

		conn, err := s.dial(ctx)
		if err == nil {
			failures = 0
			b.Reset()
			s.log.Debug().Msg("realtime channel open")
			s.setStatus(ctx, Status{State: StateOpen})
			err = s.readLoop(ctx, conn)
			conn.CloseNow()
		}
		if ctx.Err() != nil {
			s.log.Debug().Msg("realtime channel closed")
			return
		}
		if missingCredential(err) {
			s.log.Debug().Err(err).Msg("realtime channel has no credential")
			s.setStatus(ctx, Status{State: StateClosed, Attempt: failures + 1, Err: err})
			return
		}

		failures++
		if opts.MaxRetries > 0 && failures > opts.MaxRetries {
			s.log.Warn().Err(err).Int("attempt", failures).Msg("realtime channel giving up")
			s.setStatus(ctx, Status{State: StateClosed, Attempt: failures, Err: err})
			return
		}

		delay := b.NextBackOff()
		s.log.Debug().Err(err).Int("attempt", failures).Dur("delay", delay).Msg("realtime channel backing off")
		s.setStatus(ctx, Status{State: StateBackoff, Attempt: failures, Err: err})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Subscription) dial(ctx context.Context) (*websocket.Conn, error) {
	opts := s.dialer.opts

	header := http.Header{}
	if opts.Tokens != nil {
		token, err := opts.Tokens.Token(ctx)
		if err != nil {
			return nil, core.AuthError("realtime token unavailable", err)
		}
		if token == "" {
			return nil, core.ErrNoCredential
		}
		header.Set("Authorization", "Bearer "+token)
	}

	dialCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, s.url, &websocket.DialOptions{
		HTTPClient: opts.HTTPClient,
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			ce := core.AuthError("realtime channel rejected credential", err)
			ce.Status = resp.StatusCode
			return nil, ce
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, core.TimeoutError("realtime connect timed out", err)
		}
		return nil, core.NetworkError("realtime connect failed", err)
	}
	conn.SetReadLimit(readLimit)
	return conn, nil
}

// missingCredential reports a local auth failure. Retrying cannot help until
// the user logs in, unlike a rejection by the server, which carries a status.
func missingCredential(err error) bool {
	return errors.Is(err, core.ErrAuth) && core.StatusOf(err) == 0
}

// readLoop delivers frames until the connection fails. Frames that do not
// decode are logged and dropped; the connection stays up.
func (s *Subscription) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return core.NetworkError("realtime channel closed by server", err)
			}
			return core.NetworkError("realtime read failed", err)
		}
		if typ != websocket.MessageText {
			s.log.Debug().Msg("ignoring binary frame")
			continue
		}

		msg, ok, err := s.decode(data, time.Now())
		if err != nil {
			s.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		if !ok {
			continue
		}
		if s.cb.OnMessage != nil && ctx.Err() == nil {
			s.cb.OnMessage(ctx, msg)
		}
	}
}

// decode turns a raw frame into a message. ok is false for frame types the
// client does not act on.
func (s *Subscription) decode(data []byte, received time.Time) (core.Message, bool, error) {
	var frame proto.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return core.Message{}, false, core.DecodeError("invalid frame json", err)
	}
	if frame.Type != proto.FrameTypeChatMessage {
		s.log.Debug().Str("type", frame.Type).Msg("ignoring frame")
		return core.Message{}, false, nil
	}
	msg, err := proto.MessageFromFrame(frame, received, s.dialer.opts.Resolve)
	if err != nil {
		return core.Message{}, false, core.DecodeError(fmt.Sprintf("invalid %s frame", frame.Type), err)
	}
	msg.RoomID = s.room.ID
	return msg, true, nil
}
