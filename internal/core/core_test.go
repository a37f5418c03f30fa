package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestMessageIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A MessageID `json:"a"`
		B MessageID `json:"b"`
		C MessageID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42, "b": "7", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != "42" || payload.B != "7" || !payload.C.IsZero() {
		t.Fatalf("unexpected ids %+v", payload)
	}

	data, err := json.Marshal(ServerMessageID(42))
	if err != nil || string(data) != "42" {
		t.Fatalf("expected numeric encoding, got %s (%v)", data, err)
	}
}

func TestNonCanonicalMessageIDStaysString(t *testing.T) {
	for _, id := range []MessageID{"007", "+5", "local:1"} {
		data, err := json.Marshal(id)
		if err != nil {
			t.Fatalf("marshal %q: %v", id, err)
		}
		want, _ := json.Marshal(string(id))
		if string(data) != string(want) {
			t.Fatalf("marshal %q: got %s, want %s", id, data, want)
		}
	}
}

func TestPlaceholderIDs(t *testing.T) {
	a, b := NewPlaceholderID(), NewPlaceholderID()
	if a == b {
		t.Fatal("placeholder ids must be unique")
	}
	if !a.IsPlaceholder() || ServerMessageID(1).IsPlaceholder() {
		t.Fatal("placeholder detection is wrong")
	}
}

func TestFingerprintIgnoresID(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 600_000_000, time.UTC)
	a := Message{ID: "1", Content: "hi", Sender: Sender{ID: 3}, CreatedAt: created}
	b := Message{ID: NewPlaceholderID(), Content: "hi", Sender: Sender{ID: 3}, CreatedAt: created.Add(100 * time.Microsecond)}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatal("same sender, millisecond and payload should match")
	}

	c := b
	c.Content = "hello"
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatal("different content should not match")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	wrapped := fmt.Errorf("list rooms: %w", AuthError("rejected", nil))
	if !errors.Is(wrapped, ErrAuth) {
		t.Fatal("expected auth kind through wrapping")
	}
	if errors.Is(wrapped, ErrServer) {
		t.Fatal("auth error must not match server kind")
	}
	if !errors.Is(ErrNoCredential, ErrAuth) {
		t.Fatal("missing credential is an auth error")
	}
	if !errors.Is(ErrEmptyMessage, ErrValidation) || !errors.Is(ErrMediaDenied, ErrPermission) {
		t.Fatal("unexpected kinds for concrete errors")
	}

	se := ServerError(http.StatusBadGateway, "upstream")
	if CodeOf(se) != ErrCodeServer || StatusOf(se) != http.StatusBadGateway {
		t.Fatalf("unexpected code/status %s %d", CodeOf(se), StatusOf(se))
	}
	if CodeOf(errors.New("plain")) != "" || StatusOf(nil) != 0 {
		t.Fatal("plain errors carry no code")
	}

	cause := errors.New("dial tcp: refused")
	ne := NetworkError("connect failed", cause)
	if !errors.Is(ne, cause) || ne.Error() != "connect failed: dial tcp: refused" {
		t.Fatalf("unexpected network error %q", ne.Error())
	}
}
