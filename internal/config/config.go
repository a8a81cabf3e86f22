// internal/config/config.go
package config

import (
	"net"
	"strconv"
	"time"
)

type Config struct {
	Device    DeviceConfig    `mapstructure:"device"`
	Poll      PollConfig      `mapstructure:"poll"`
	Registers RegistersConfig `mapstructure:"registers"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ---- DEVICE ----

// DeviceConfig is the managed device: where it lives and which block to read.
// Supplied once at setup, immutable afterwards.
type DeviceConfig struct {
	ID            string        `mapstructure:"id"`
	Host          string        `mapstructure:"host"`
	Port          int           `mapstructure:"port"`
	SlaveID       int           `mapstructure:"slave_id"`
	RegisterStart int           `mapstructure:"register_start"`
	RegisterCount int           `mapstructure:"register_count"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Endpoint returns host:port for the TCP dialer.
func (d DeviceConfig) Endpoint() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// ---- POLL ----

type PollConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

// ---- REGISTER TABLE ----

type RegistersConfig struct {
	// TablePath overrides the embedded register table. Empty means embedded.
	TablePath string `mapstructure:"table_path"`
}

// ---- HTTP ----

type ServerConfig struct {
	HTTPPort  int     `mapstructure:"http_port"` // 0 disables the HTTP surface
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}
