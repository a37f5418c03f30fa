package config

import (
	"strings"
	"time"
)

// Config holds client configuration values.
type Config struct {
	APIBaseURL   string `mapstructure:"api_base_url" yaml:"api_base_url"`
	WSBaseURL    string `mapstructure:"ws_base_url" yaml:"ws_base_url"`
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`

	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	HistoryTimeout time.Duration `mapstructure:"history_timeout" yaml:"history_timeout"`

	ReconnectInitialInterval time.Duration `mapstructure:"reconnect_initial_interval" yaml:"reconnect_initial_interval"`
	ReconnectMaxInterval     time.Duration `mapstructure:"reconnect_max_interval" yaml:"reconnect_max_interval"`
	ReconnectMaxRetries      int           `mapstructure:"reconnect_max_retries" yaml:"reconnect_max_retries"`

	// MediaAccess is the host's answer to the media library permission prompt.
	MediaAccess bool `mapstructure:"media_access" yaml:"media_access"`

	DevServer DevServerConfig `mapstructure:"devserver" yaml:"devserver"`
}

// DevServerConfig configures the local backend emulator.
type DevServerConfig struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	MediaDir          string        `mapstructure:"media_dir" yaml:"media_dir"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	AccessTTL         time.Duration `mapstructure:"access_ttl" yaml:"access_ttl"`
	RefreshTTL        time.Duration `mapstructure:"refresh_ttl" yaml:"refresh_ttl"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// AuthRateLimit caps login and register attempts per client address per minute.
	AuthRateLimit int `mapstructure:"auth_rate_limit" yaml:"auth_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		APIBaseURL:               "http://localhost:8000",
		DatabasePath:             "greenleaf.db",
		LogLevel:                 "info",
		RequestTimeout:           15 * time.Second,
		ConnectTimeout:           10 * time.Second,
		HistoryTimeout:           15 * time.Second,
		ReconnectInitialInterval: 500 * time.Millisecond,
		ReconnectMaxInterval:     30 * time.Second,
		ReconnectMaxRetries:      8,
		MediaAccess:              true,
		DevServer: DevServerConfig{
			Addr:              ":8000",
			DatabasePath:      "greenleaf-devserver.db",
			MediaDir:          "media",
			JWTSecret:         "change-me",
			AccessTTL:         15 * time.Minute,
			RefreshTTL:        7 * 24 * time.Hour,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   5 * time.Second,
			AuthRateLimit:     30,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.WSBaseURL != "" {
		c.WSBaseURL = other.WSBaseURL
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.ConnectTimeout != 0 {
		c.ConnectTimeout = other.ConnectTimeout
	}
	if other.HistoryTimeout != 0 {
		c.HistoryTimeout = other.HistoryTimeout
	}
	if other.ReconnectInitialInterval != 0 {
		c.ReconnectInitialInterval = other.ReconnectInitialInterval
	}
	if other.ReconnectMaxInterval != 0 {
		c.ReconnectMaxInterval = other.ReconnectMaxInterval
	}
	if other.ReconnectMaxRetries != 0 {
		c.ReconnectMaxRetries = other.ReconnectMaxRetries
	}
	if other.DevServer.Addr != "" {
		c.DevServer.Addr = other.DevServer.Addr
	}
	if other.DevServer.DatabasePath != "" {
		c.DevServer.DatabasePath = other.DevServer.DatabasePath
	}
	if other.DevServer.MediaDir != "" {
		c.DevServer.MediaDir = other.DevServer.MediaDir
	}
	if other.DevServer.JWTSecret != "" {
		c.DevServer.JWTSecret = other.DevServer.JWTSecret
	}
	if other.DevServer.AccessTTL != 0 {
		c.DevServer.AccessTTL = other.DevServer.AccessTTL
	}
	if other.DevServer.RefreshTTL != 0 {
		c.DevServer.RefreshTTL = other.DevServer.RefreshTTL
	}
	if other.DevServer.ReadHeaderTimeout != 0 {
		c.DevServer.ReadHeaderTimeout = other.DevServer.ReadHeaderTimeout
	}
	if other.DevServer.ShutdownTimeout != 0 {
		c.DevServer.ShutdownTimeout = other.DevServer.ShutdownTimeout
	}
	if other.DevServer.AuthRateLimit != 0 {
		c.DevServer.AuthRateLimit = other.DevServer.AuthRateLimit
	}
}

// RealtimeBaseURL returns the WebSocket base, derived from the API base when unset.
func (c Config) RealtimeBaseURL() string {
	if c.WSBaseURL != "" {
		return strings.TrimRight(c.WSBaseURL, "/")
	}
	base := strings.TrimRight(c.APIBaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
