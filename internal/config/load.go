// internal/config/load.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides (SUNHOME_DEVICE_HOST, ...).
const EnvPrefix = "SUNHOME"

// Load reads configuration from path (optional) and the environment.
// An empty path yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.id", "esy-sunhome")
	v.SetDefault("device.host", "192.168.3.17")
	v.SetDefault("device.port", 4196)
	v.SetDefault("device.slave_id", 1)
	v.SetDefault("device.register_start", 1)
	v.SetDefault("device.register_count", 100)
	v.SetDefault("device.timeout", "3s")

	v.SetDefault("poll.interval", "1s")
	v.SetDefault("poll.reconnect_backoff", "2s")
	v.SetDefault("poll.shutdown_timeout", "5s")

	v.SetDefault("registers.table_path", "")

	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
}
