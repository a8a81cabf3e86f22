// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// MaxRegisterCount is the largest block a single read-input-registers request may ask for.
const MaxRegisterCount = 125

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil")
	}

	// ------------------------------------------------------------
	// DEVICE
	// ------------------------------------------------------------

	d := cfg.Device

	if strings.TrimSpace(d.Host) == "" {
		return errors.New("device: host required")
	}
	if d.Port < 1 || d.Port > 65535 {
		return fmt.Errorf("device: port %d out of range 1-65535", d.Port)
	}
	if d.SlaveID < 0 || d.SlaveID > 255 {
		return fmt.Errorf("device: slave_id %d out of range 0-255", d.SlaveID)
	}
	if d.RegisterStart < 0 || d.RegisterStart > 0xFFFF {
		return fmt.Errorf("device: register_start %d out of range 0-65535", d.RegisterStart)
	}
	if d.RegisterCount < 1 || d.RegisterCount > MaxRegisterCount {
		return fmt.Errorf("device: register_count %d out of range 1-%d", d.RegisterCount, MaxRegisterCount)
	}
	// the device reports word i at start+i+1, which must stay a 16-bit address
	if d.RegisterStart+d.RegisterCount > 0xFFFF {
		return fmt.Errorf(
			"device: register block %d+%d exceeds address space",
			d.RegisterStart,
			d.RegisterCount,
		)
	}
	if d.Timeout <= 0 {
		return errors.New("device: timeout must be > 0")
	}

	// ------------------------------------------------------------
	// POLL
	// ------------------------------------------------------------

	if cfg.Poll.Interval <= 0 {
		return errors.New("poll: interval must be > 0")
	}
	if cfg.Poll.ReconnectBackoff < 0 {
		return errors.New("poll: reconnect_backoff must be >= 0")
	}
	if cfg.Poll.ShutdownTimeout < 0 {
		return errors.New("poll: shutdown_timeout must be >= 0")
	}

	// ------------------------------------------------------------
	// SERVER / LOGGING
	// ------------------------------------------------------------

	if cfg.Server.HTTPPort < 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server: http_port %d out of range 0-65535", cfg.Server.HTTPPort)
	}
	if cfg.Server.RateLimit < 0 {
		return errors.New("server: rate_limit must be >= 0")
	}
	if cfg.Server.RateLimit > 0 && cfg.Server.RateBurst < 1 {
		return errors.New("server: rate_burst must be >= 1 when rate_limit is set")
	}

	// case-insensitive; Normalize lowercases it
	if _, err := zapcore.ParseLevel(strings.ToLower(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	return nil
}
