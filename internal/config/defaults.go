package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrExists is returned by WriteDefault when the file is already there.
var ErrExists = errors.New("config file already exists")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		UserID:  "my_todos_user",
		DataDir: "~/.tada",
		Sync: SyncConfig{
			Enabled:        true,
			Debounce:       2 * time.Second,
			ResyncInterval: 30 * time.Second,
			ResyncOffline:  true,
			RequestTimeout: 10 * time.Second,
			BeaconQueue:    8,
			BeaconGrace:    2 * time.Second,
		},
		Server: ServerConfig{
			Addr:   ":8787",
			DBPath: "~/.tada/server.db",
		},
		LogLevel: "info",
		Theme:    "classic",
	}
}

const header = `# tada configuration
# Every key can also be set through the environment, e.g. TADA_API_URL or
# TADA_SYNC_DEBOUNCE=5s.

`

// WriteDefault writes the built-in configuration to path as YAML.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	b, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("yaml marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, append([]byte(header), b...), 0o644)
}

// Marshal renders cfg as YAML, for `tada config show`.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
