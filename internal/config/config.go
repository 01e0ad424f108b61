// Package config loads the daemon's TOML configuration file and
// overlays command-line flag values on top of it (cmd/tezsignd's
// entrypoint), the way the teacher's tooling separates a file-based
// baseline from CLI overrides.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is the full set of tunables for cmd/tezsignd.
type Config struct {
	ListenAddress string `toml:"listen_address"`
	AdminAddress  string `toml:"admin_address"`

	MaxConnections int `toml:"max_connections"`

	KeysFile           string `toml:"keys_file"`
	WatermarkDir       string `toml:"watermark_dir"`
	WatermarkDSN       string `toml:"watermark_dsn"`       // optional SQL backend, empty disables it
	WatermarkRedisAddr string `toml:"watermark_redis_addr"` // optional mirror, empty disables it

	LargeGapThreshold uint32 `toml:"large_gap_threshold"`

	LogFile  string `toml:"log_file"`
	LogLevel string `toml:"log_level"`
}

// Default returns the baseline configuration; values are chosen to
// match spec.md's recommended defaults (four simultaneous connections,
// no large-gap heuristic until configured).
func Default() Config {
	return Config{
		ListenAddress:  "127.0.0.1:7732",
		AdminAddress:   "127.0.0.1:7733",
		MaxConnections: 4,
		WatermarkDir:   "./data/watermarks",
		LogLevel:       "info",
	}
}

// Load reads a TOML file on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}
