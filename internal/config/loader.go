package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "TADA"

// New returns a viper instance with defaults and environment binding in place.
// Callers may bind flags on it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	d := Default()

	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("user_id", d.UserID)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("sync.enabled", d.Sync.Enabled)
	v.SetDefault("sync.debounce", d.Sync.Debounce)
	v.SetDefault("sync.resync_interval", d.Sync.ResyncInterval)
	v.SetDefault("sync.resync_offline", d.Sync.ResyncOffline)
	v.SetDefault("sync.request_timeout", d.Sync.RequestTimeout)
	v.SetDefault("sync.beacon_queue", d.Sync.BeaconQueue)
	v.SetDefault("sync.beacon_grace", d.Sync.BeaconGrace)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.db_path", d.Server.DBPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("theme", d.Theme)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load merges the given files, in order, over v's defaults and decodes the
// result. Missing files are skipped. Environment and bound flags win over files.
func Load(v *viper.Viper, files ...string) (*Config, error) {
	if v == nil {
		v = New()
	}
	v.SetConfigType("yaml")
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		v.SetConfigFile(f)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir = ExpandHome(cfg.DataDir)
	cfg.LogFile = ExpandHome(cfg.LogFile)
	cfg.Server.DBPath = ExpandHome(cfg.Server.DBPath)
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Files lists the config files Load reads by default, lowest priority first.
func Files() []string {
	return []string{GlobalPath(), ProjectPath()}
}

// GlobalPath is ~/.config/tada/config.yaml.
func GlobalPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "tada", "config.yaml")
}

// ProjectPath is ./.tada.yaml.
func ProjectPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, ".tada.yaml")
}

// ExpandHome resolves a leading ~ to the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
