package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sharanperla/Greenleaf-client/internal/core"
	"github.com/sharanperla/Greenleaf-client/internal/proto"
)

type staticTokens struct {
	token     string
	refreshed string
	refreshes atomic.Int32
	err       error
}

func (s *staticTokens) Token(context.Context) (string, error) { return s.token, nil }

func (s *staticTokens) Refresh(context.Context) (string, error) {
	s.refreshes.Add(1)
	if s.err != nil {
		return "", s.err
	}
	s.token = s.refreshed
	return s.refreshed, nil
}

func newTestClient(t *testing.T, h http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	c, err := NewClient(ts.URL, tokens, WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientRejectsBadScheme(t *testing.T) {
	if _, err := NewClient("ftp://example.com", nil); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}

func TestListRoomsSendsBearerAndAccept(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != pathRooms {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("accept = %q", got)
		}
		writeJSON(w, http.StatusOK, []proto.RoomPayload{
			{ID: 2, Name: "beta"},
			{ID: 1, Name: "alpha", Description: "first"},
		})
	}, &staticTokens{token: "tok"})

	rooms, err := c.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 2 || rooms[0].Name != "beta" || rooms[1].Description != "first" {
		t.Fatalf("rooms not returned in server order: %+v", rooms)
	}
}

func TestNoCredentialMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, []proto.RoomPayload{})
	}, &staticTokens{})

	_, err := c.ListRooms(context.Background())
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network call, got %d", calls.Load())
	}

	nilTokens := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, nil)
	if _, err := nilTokens.ListMessages(context.Background(), 1); !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error with nil token source, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no network call, got %d", calls.Load())
	}
}

func TestUnauthorizedRefreshesOnceAndRetries(t *testing.T) {
	var calls atomic.Int32
	tokens := &staticTokens{token: "old", refreshed: "new"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer new" {
			writeJSON(w, http.StatusUnauthorized, proto.ErrorResponse{Error: "token expired"})
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("retry lost multipart body: %v", err)
		}
		if r.FormValue("content") != "hello" {
			t.Errorf("retry content = %q", r.FormValue("content"))
		}
		writeJSON(w, http.StatusCreated, proto.MessagePayload{
			ID:        core.ServerMessageID(9),
			Content:   "hello",
			User:      proto.UserPayload{ID: 1, Username: "ana"},
			Room:      3,
			CreatedAt: "2024-05-01T10:00:00Z",
		})
	}, tokens)

	msg, err := c.SendMessage(context.Background(), 3, "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != core.ServerMessageID(9) {
		t.Fatalf("unexpected id %s", msg.ID)
	}
	if calls.Load() != 2 || tokens.refreshes.Load() != 1 {
		t.Fatalf("calls=%d refreshes=%d, want 2 and 1", calls.Load(), tokens.refreshes.Load())
	}
}

func TestRefreshFailureIsAuthError(t *testing.T) {
	tokens := &staticTokens{token: "old", err: errors.New("refresh rejected")}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, proto.ErrorResponse{Error: "token expired"})
	}, tokens)

	_, err := c.ListRooms(context.Background())
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if core.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", core.StatusOf(err))
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
		status  int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, proto.ErrorResponse{Error: "boom"})
			},
			want:   core.ErrServer,
			status: http.StatusInternalServerError,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusForbidden, proto.ErrorResponse{Error: "nope"})
			},
			want:   core.ErrAuth,
			status: http.StatusForbidden,
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("{not json"))
			},
			want:   core.ErrServer,
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler, &staticTokens{token: "tok"})
			_, err := c.ListRooms(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if core.StatusOf(err) != tt.status {
				t.Fatalf("status = %d, want %d", core.StatusOf(err), tt.status)
			}
		})
	}
}

func TestNetworkErrorWhenServerGone(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c, err := NewClient(url, &staticTokens{token: "tok"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.ListRooms(context.Background()); !errors.Is(err, core.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestTimeoutError(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(ts.URL, &staticTokens{token: "tok"}, WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.ListRooms(context.Background()); !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestResolveURL(t *testing.T) {
	c, err := NewClient("http://example.com/", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if got := c.ResolveURL("/media/a.png"); got != "http://example.com/media/a.png" {
		t.Fatalf("relative: %s", got)
	}
	if got := c.ResolveURL("https://cdn.example.com/a.png"); got != "https://cdn.example.com/a.png" {
		t.Fatalf("absolute: %s", got)
	}
}

func newMuxServer(t *testing.T, h http.Handler) string {
	t.Helper()

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts.URL
}
