package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
	ClientOrigin       string        `mapstructure:"client_origin" yaml:"client_origin"`
	RoomGracePeriod    time.Duration `mapstructure:"room_grace_period" yaml:"room_grace_period"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	EventBuffer        int           `mapstructure:"event_buffer" yaml:"event_buffer"`
	MDNSEnabled        bool          `mapstructure:"mdns_enabled" yaml:"mdns_enabled"`
	MDNSInstance       string        `mapstructure:"mdns_instance" yaml:"mdns_instance"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":3001",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		LogFormat:          "console",
		ClientOrigin:       "http://localhost:5173",
		RoomGracePeriod:    time.Hour,
		MaxMessageBytes:    1 << 20,
		RateLimitPerMinute: 0,
		EventBuffer:        256,
		MDNSEnabled:        false,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.ClientOrigin != "" {
		c.ClientOrigin = other.ClientOrigin
	}
	if other.RoomGracePeriod != 0 {
		c.RoomGracePeriod = other.RoomGracePeriod
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.EventBuffer != 0 {
		c.EventBuffer = other.EventBuffer
	}
	if other.MDNSEnabled {
		c.MDNSEnabled = true
	}
	if other.MDNSInstance != "" {
		c.MDNSInstance = other.MDNSInstance
	}
}
