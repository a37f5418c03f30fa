package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greenleaf.yaml")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("expected path %s, got %s", path, resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}
	if cfg.HistoryTimeout != Default().HistoryTimeout {
		t.Fatalf("unexpected history timeout: %v", cfg.HistoryTimeout)
	}
}

func TestLoadReportsDefaultWriteFailure(t *testing.T) {
	// The config directory is a dangling symlink: reading reports not-exist
	// and creating the directory fails.
	root := t.TempDir()
	dir := filepath.Join(root, "conf")
	if err := os.Symlink(filepath.Join(root, "missing"), dir); err != nil {
		t.Skipf("symlink unsupported: %v", err)
	}
	path := filepath.Join(dir, "greenleaf.yaml")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load without logger: %v", err)
	}
	if cfg.HistoryTimeout != Default().HistoryTimeout {
		t.Fatalf("expected defaults, got history timeout %v", cfg.HistoryTimeout)
	}

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	if _, _, err := Load(&logger, path); err != nil {
		t.Fatalf("load with logger: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "failed to write default config") {
		t.Fatalf("expected write failure to be logged, got %s", out)
	}
	if strings.Contains(out, "created default config") || strings.Contains(out, "after writing default") {
		t.Fatalf("write failure logged as success: %s", out)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greenleaf.yaml")
	content := "api_base_url: http://file.example:8000\nconnect_timeout: 3s\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("GREENLEAF_API_BASE_URL", "http://env.example:9000")
	t.Setenv("GREENLEAF_DEVSERVER_ADDR", ":9999")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://env.example:9000" {
		t.Fatalf("expected env api base url, got %s", cfg.APIBaseURL)
	}
	if cfg.ConnectTimeout != 3*time.Second {
		t.Fatalf("expected file connect timeout, got %v", cfg.ConnectTimeout)
	}
	if cfg.DevServer.Addr != ":9999" {
		t.Fatalf("expected env devserver addr, got %s", cfg.DevServer.Addr)
	}
}

func TestRealtimeBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "derived http", cfg: Config{APIBaseURL: "http://host:8000/"}, want: "ws://host:8000"},
		{name: "derived https", cfg: Config{APIBaseURL: "https://host"}, want: "wss://host"},
		{name: "explicit", cfg: Config{APIBaseURL: "http://host", WSBaseURL: "ws://other/"}, want: "ws://other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.RealtimeBaseURL(); got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
