package config

import (
	"time"

	"github.com/pion/webrtc/v4"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	Environment       string        `mapstructure:"environment" yaml:"environment"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	ClientQueueSize   int           `mapstructure:"client_queue_size" yaml:"client_queue_size"`
	StaticDir         string        `mapstructure:"static_dir" yaml:"static_dir"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	Rooms      RoomsConfig        `mapstructure:"rooms" yaml:"rooms"`
	RateLimit  RateLimitConfig    `mapstructure:"rate_limit" yaml:"rate_limit"`
	Stream     StreamConfig       `mapstructure:"stream" yaml:"stream"`
	ICEServers []webrtc.ICEServer `mapstructure:"ice_servers" yaml:"ice_servers"`
}

// RoomsConfig controls chat room lifecycle.
type RoomsConfig struct {
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
	// EmptyGrace is how long an empty room survives before eviction. Zero deletes
	// a room as soon as its last participant leaves.
	EmptyGrace      time.Duration `mapstructure:"empty_grace" yaml:"empty_grace"`
	InactiveTimeout time.Duration `mapstructure:"inactive_timeout" yaml:"inactive_timeout"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// RateLimitConfig is the per-connection chat quota.
type RateLimitConfig struct {
	Window time.Duration `mapstructure:"window" yaml:"window"`
	Max    int           `mapstructure:"max" yaml:"max"`
}

// StreamConfig tunes the binary media relay.
type StreamConfig struct {
	MaxChunkBytes int64 `mapstructure:"max_chunk_bytes" yaml:"max_chunk_bytes"`
	QueueSize     int   `mapstructure:"queue_size" yaml:"queue_size"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":3000",
		Environment:       "development",
		LogLevel:          "info",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		MaxMessageBytes:   1 << 20,
		ClientQueueSize:   64,
		AllowedOrigins:    []string{"*"},
		Rooms: RoomsConfig{
			HistoryLimit:    1000,
			EmptyGrace:      0,
			InactiveTimeout: 30 * time.Minute,
			SweepInterval:   time.Minute,
		},
		RateLimit: RateLimitConfig{
			Window: 10 * time.Second,
			Max:    50,
		},
		Stream: StreamConfig{
			MaxChunkBytes: 8 << 20,
			QueueSize:     32,
		},
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
			{URLs: []string{"stun:stun1.l.google.com:19302"}},
			{URLs: []string{"stun:stun2.l.google.com:19302"}},
			{URLs: []string{"stun:stun.stunprotocol.org:3478"}},
		},
	}
}

// IsProduction reports whether the server runs in a production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.Environment != "" {
		c.Environment = other.Environment
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.StaticDir != "" {
		c.StaticDir = other.StaticDir
	}
}
