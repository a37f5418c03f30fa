package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

// TokenSource supplies the bearer token sent on the upgrade request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Options configures a Dialer.
type Options struct {
	// BaseURL is the ws:// or wss:// origin; room paths are appended to it.
	BaseURL string
	Tokens  TokenSource

	ConnectTimeout  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxRetries is the number of consecutive failed connects tolerated before
	// the channel gives up. Zero retries forever.
	MaxRetries int

	// Resolve maps relative image paths in frames to absolute URLs.
	Resolve    func(string) string
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Dialer opens per-room channels.
type Dialer struct {
	opts Options
	log  *zerolog.Logger
}

// NewDialer validates opts and returns a Dialer.
func NewDialer(opts Options) (*Dialer, error) {
	u, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse realtime url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("realtime url %q must be ws or wss", opts.BaseURL)
	}
	opts.BaseURL = strings.TrimRight(u.String(), "/")

	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	if opts.MaxInterval < opts.InitialInterval {
		opts.MaxInterval = opts.InitialInterval
	}

	logger := opts.Logger
	if logger == nil {
		disabled := zerolog.Nop()
		logger = &disabled
	}
	return &Dialer{opts: opts, log: logger}, nil
}

// URL returns the channel address for a room name.
func (d *Dialer) URL(roomName string) string {
	return d.opts.BaseURL + "/ws/chat/" + url.PathEscape(roomName) + "/"
}

// Subscribe starts a channel for room. Callbacks run on the subscription's own
// goroutine, in transport order, and never after Close has returned.
func (d *Dialer) Subscribe(ctx context.Context, room core.Room, cb Callbacks) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	logger := d.log.With().Str("room", room.Name).Int64("room_id", room.ID).Logger()
	s := &Subscription{
		dialer: d,
		room:   room,
		url:    d.URL(room.Name),
		cb:     cb,
		log:    &logger,
		cancel: cancel,
		done:   make(chan struct{}),
		status: Status{State: StateClosed},
	}
	go s.run(ctx)
	return s
}
