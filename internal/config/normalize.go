// internal/config/normalize.go
package config

import "strings"

// DefaultDeviceID names the device when the config leaves it blank.
const DefaultDeviceID = "esy-sunhome"

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Device.Host = strings.TrimSpace(cfg.Device.Host)

	cfg.Device.ID = strings.TrimSpace(cfg.Device.ID)
	if cfg.Device.ID == "" {
		cfg.Device.ID = DefaultDeviceID
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
}
