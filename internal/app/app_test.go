package app

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sharanperla/Greenleaf-client/internal/config"
	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/realtime"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

// startDevServer runs the emulator on a random port and returns its base URL.
func startDevServer(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	cfg := config.Default().DevServer
	cfg.DatabasePath = filepath.Join(dir, "server.db")
	cfg.MediaDir = filepath.Join(dir, "media")
	cfg.JWTSecret = "e2e-secret"
	cfg.AuthRateLimit = 0

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := NewDevServer(ctx, cfg, nil)
	if err != nil {
		cancel()
		t.Fatalf("new devserver: %v", err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		cancel()
		t.Fatalf("listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("devserver exited with error: %v", err)
		}
	})
	return "http://" + ln.Addr().String()
}

func newTestApp(t *testing.T, baseURL, name string) *App {
	t.Helper()

	cfg := config.Default()
	cfg.APIBaseURL = baseURL
	cfg.DatabasePath = filepath.Join(t.TempDir(), name+".db")
	cfg.RequestTimeout = 5 * time.Second
	cfg.ConnectTimeout = 2 * time.Second
	cfg.ReconnectInitialInterval = 20 * time.Millisecond
	cfg.ReconnectMaxInterval = 100 * time.Millisecond

	a, err := New(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func loginAs(t *testing.T, a *App, username string) {
	t.Helper()
	ctx := context.Background()
	if err := a.Auth.Register(ctx, username, "password123", username+"@example.com"); err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	user, err := a.Auth.Login(ctx, username, "password123")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	if user.Username != username {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestCallsWithoutLoginFailWithAuthError(t *testing.T) {
	baseURL := startDevServer(t)
	a := newTestApp(t, baseURL, "anon")

	_, err := a.Rooms.List(context.Background())
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestChatRoundTripAgainstDevServer(t *testing.T) {
	baseURL := startDevServer(t)
	alice := newTestApp(t, baseURL, "alice")
	bob := newTestApp(t, baseURL, "bob")
	loginAs(t, alice, "alice")
	loginAs(t, bob, "bob")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = alice.Session.Run(ctx) }()

	rooms, err := alice.Rooms.List(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) == 0 {
		t.Fatal("expected seeded rooms")
	}
	general, ok := alice.Rooms.Find("general")
	if !ok {
		t.Fatalf("general room missing from %+v", rooms)
	}

	if err := alice.Session.Select(ctx, general); err != nil {
		t.Fatalf("select: %v", err)
	}
	waitFor(t, "channel open and history loaded", func() bool {
		st := alice.Session.Status()
		return st.Channel.State == realtime.StateOpen && st.HistoryLoaded
	})
	// The socket joins the server hub just after the upgrade completes.
	time.Sleep(100 * time.Millisecond)

	// A message from another user reaches alice only through the push channel.
	if _, err := bob.API.SendMessage(ctx, general.ID, "hello from bob"); err != nil {
		t.Fatalf("bob send: %v", err)
	}
	waitFor(t, "bob's message pushed", func() bool {
		return alice.Session.Timeline().Len() == 1
	})

	// Alice's own message arrives both as the REST echo and as a push.
	sent, err := alice.Dispatcher.SendText(ctx, general.ID, "hello from alice")
	if err != nil {
		t.Fatalf("alice send: %v", err)
	}
	if sent.ID.IsZero() || sent.ID.IsPlaceholder() {
		t.Fatalf("expected server id, got %q", sent.ID)
	}
	waitFor(t, "alice's message in timeline", func() bool {
		return alice.Session.Timeline().Contains(sent.ID)
	})
	time.Sleep(100 * time.Millisecond)

	snapshot := alice.Session.Timeline().Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 messages without duplicates, got %d: %+v", len(snapshot), snapshot)
	}
	if snapshot[0].Content != "hello from bob" || snapshot[1].Content != "hello from alice" {
		t.Fatalf("unexpected order %+v", snapshot)
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	baseURL := startDevServer(t)

	cfg := config.Default()
	cfg.APIBaseURL = baseURL
	cfg.DatabasePath = filepath.Join(t.TempDir(), "client.db")

	first, err := New(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	loginAs(t, first, "carol")
	_ = first.Close()

	second, err := New(context.Background(), &cfg, nil)
	if err != nil {
		t.Fatalf("reopen app: %v", err)
	}
	defer second.Close()

	user, ok := second.Auth.User()
	if !ok || user.Username != "carol" {
		t.Fatalf("expected restored session, got %+v %v", user, ok)
	}
	if _, err := second.Diseases.Refresh(context.Background()); err != nil {
		t.Fatalf("diseases with restored token: %v", err)
	}
}
