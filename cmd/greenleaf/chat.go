package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sharanperla/Greenleaf-client/internal/app"
	"github.com/sharanperla/Greenleaf-client/internal/chat"
	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/realtime"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat ROOM",
		Short: "Join a room and chat interactively",
		Long: `Join a room and chat interactively.

Type a line and press Enter to send it. Commands:
  /image PATH   send an image
  /room NAME    switch to another room
  /retry        reconnect to the current room
  /quit         leave`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				return runChat(cmd.Context(), a, args[0], cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// chatConsole renders the selected room's timeline and sends typed input.
type chatConsole struct {
	app *app.App

	mu   sync.Mutex
	out  io.Writer
	room core.Room
	seen map[uint64]struct{}
}

func runChat(ctx context.Context, a *app.App, roomName string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionDone := make(chan error, 1)
	go func() { sessionDone <- a.Session.Run(ctx) }()

	console := &chatConsole{app: a, out: out, seen: make(map[uint64]struct{})}
	if err := console.join(ctx, roomName); err != nil {
		return err
	}

	go console.watch(ctx)

	console.printf("Type messages and press Enter to send. /quit to exit.\n")
	err := console.readInput(ctx, in)

	cancel()
	if runErr := <-sessionDone; runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return err
}

func (c *chatConsole) join(ctx context.Context, name string) error {
	if _, err := c.app.Rooms.List(ctx); err != nil {
		return err
	}
	room, ok := c.app.Rooms.Find(name)
	if !ok {
		return core.ValidationError(fmt.Sprintf("room %q does not exist", name))
	}

	c.mu.Lock()
	c.room = room
	c.seen = make(map[uint64]struct{})
	c.mu.Unlock()

	c.printf("-- joining #%s --\n", room.Name)
	return c.app.Session.Select(ctx, room)
}

func (c *chatConsole) currentRoom() core.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *chatConsole) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func (c *chatConsole) watch(ctx context.Context) {
	events := c.app.Session.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.handle(ev)
		}
	}
}

func (c *chatConsole) handle(ev chat.Event) {
	switch ev.Kind {
	case chat.EventMessages:
		c.printNew()
	case chat.EventStateChanged:
		if ev.State == chat.StateActive {
			c.printf("-- live in #%s --\n", ev.Room.Name)
		}
	case chat.EventHistoryFailed:
		c.printf("-- history unavailable: %v --\n", ev.Err)
	case chat.EventChannelStatus:
		if ev.Channel.State == realtime.StateBackoff {
			c.printf("-- connection lost, retrying (attempt %d) --\n", ev.Channel.Attempt)
		}
	case chat.EventChannelFailed:
		c.printf("-- live updates stopped: %v. Type /retry to reconnect --\n", ev.Err)
	}
}

// printNew prints timeline entries not shown yet. Entries are keyed by
// fingerprint so a placeholder replaced by its server copy prints once.
func (c *chatConsole) printNew() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for msg := range c.app.Session.Timeline().Messages() {
		fp := msg.Fingerprint()
		if _, ok := c.seen[fp]; ok {
			continue
		}
		c.seen[fp] = struct{}{}
		fmt.Fprintln(c.out, formatMessage(msg))
	}
}

func formatMessage(msg core.Message) string {
	stamp := msg.CreatedAt.Local().Format("15:04")
	if msg.HasImage() {
		if msg.Content != "" {
			return fmt.Sprintf("[%s] %s: %s [image %s]", stamp, msg.Sender.Username, msg.Content, msg.Image)
		}
		return fmt.Sprintf("[%s] %s: [image %s]", stamp, msg.Sender.Username, msg.Image)
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, msg.Sender.Username, msg.Content)
}

func (c *chatConsole) readInput(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			quit, err := c.execute(ctx, strings.TrimSpace(line))
			if err != nil {
				c.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *chatConsole) execute(ctx context.Context, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == "/quit" || line == "/exit":
		return true, nil
	case line == "/retry":
		return false, c.join(ctx, c.currentRoom().Name)
	case strings.HasPrefix(line, "/room "):
		return false, c.join(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/room ")))
	case strings.HasPrefix(line, "/image "):
		return false, c.sendImage(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/image ")))
	case strings.HasPrefix(line, "/"):
		return false, fmt.Errorf("unknown command %s", strings.Fields(line)[0])
	}

	_, err := c.app.Dispatcher.SendText(ctx, c.currentRoom().ID, line)
	return false, err
}

func (c *chatConsole) sendImage(ctx context.Context, path string) error {
	granted, err := c.app.Media.RequestMediaLibrary(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return core.ErrMediaDenied
	}
	asset, err := c.app.Media.Pick(path)
	if err != nil {
		return err
	}
	_, err = c.app.Dispatcher.SendImage(ctx, c.currentRoom().ID, asset.URI, asset.MIMEType)
	return err
}
