package config

import (
	"fmt"
	"time"
)

// Config is everything tada reads from files, environment and flags.
type Config struct {
	// APIURL is the sync endpoint origin, e.g. https://todo.example.com.
	// Empty means local-only.
	APIURL string `yaml:"api_url" mapstructure:"api_url"`

	// UserID is the sync identity shared by every device of one user.
	UserID string `yaml:"user_id" mapstructure:"user_id"`

	// DataDir holds the local store.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	Sync   SyncConfig   `yaml:"sync" mapstructure:"sync"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
	LogFile  string `yaml:"log_file" mapstructure:"log_file"`
	Theme    string `yaml:"theme" mapstructure:"theme"`
}

// SyncConfig tunes the client side of synchronization.
type SyncConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Debounce       time.Duration `yaml:"debounce" mapstructure:"debounce"`
	ResyncInterval time.Duration `yaml:"resync_interval" mapstructure:"resync_interval"`
	ResyncOffline  bool          `yaml:"resync_offline" mapstructure:"resync_offline"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	BeaconQueue    int           `yaml:"beacon_queue" mapstructure:"beacon_queue"`
	BeaconGrace    time.Duration `yaml:"beacon_grace" mapstructure:"beacon_grace"`
}

// ServerConfig is read by `tada serve`.
type ServerConfig struct {
	Addr   string `yaml:"addr" mapstructure:"addr"`
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// SyncActive reports whether the client should talk to a remote at all.
func (c *Config) SyncActive() bool {
	return c.Sync.Enabled && c.APIURL != ""
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Theme {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("theme %q: want classic, neon or mono", c.Theme)
	}
	if c.UserID == "" {
		return fmt.Errorf("user_id must not be empty")
	}
	durations := map[string]time.Duration{
		"sync.debounce":        c.Sync.Debounce,
		"sync.resync_interval": c.Sync.ResyncInterval,
		"sync.request_timeout": c.Sync.RequestTimeout,
	}
	for k, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", k, d)
		}
	}
	if c.Sync.BeaconQueue < 1 {
		return fmt.Errorf("sync.beacon_queue must be at least 1")
	}
	return nil
}
