// Package config loads perchup's own configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultRepoURL is the upstream Perch source repository.
const DefaultRepoURL = "https://github.com/perchlabs/perch.git"

// DefaultManifestURL serves the perchup release manifest used for the
// self-stale check.
const DefaultManifestURL = "https://releases.perchlabs.dev/perchup.json"

// Config is everything a user can override in config.toml. Zero values
// mean "use the default"; Load fills those in.
type Config struct {
	RepoURL     string `toml:"repo_url"`
	Ref         string `toml:"ref"`
	SettingsDir string `toml:"settings_dir"`
	BackupRoot  string `toml:"backup_root"`
	Retention   int    `toml:"retention"`
	ManifestURL string `toml:"manifest_url"`
	BinDir      string `toml:"bin_dir"`
}

// Dir returns the perchup config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/perchup if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "perchup"), nil
}

// Load reads {dir}/config.toml and returns the config with defaults
// applied. A missing file yields pure defaults without an error;
// unknown keys are rejected so typos do not silently become no-ops.
func Load(dir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(dir, "config.toml")
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return withDefaults(cfg)
		}
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	return withDefaults(cfg)
}

// withDefaults fills empty fields and expands a leading ~ in paths.
func withDefaults(cfg *Config) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}

	if cfg.RepoURL == "" {
		cfg.RepoURL = DefaultRepoURL
	}
	if cfg.ManifestURL == "" {
		cfg.ManifestURL = DefaultManifestURL
	}
	if cfg.SettingsDir == "" {
		cfg.SettingsDir = filepath.Join(home, ".config", "perch")
	}
	if cfg.BackupRoot == "" {
		cfg.BackupRoot = filepath.Join(home, ".perchup", "backups")
	}
	if cfg.Retention == 0 {
		cfg.Retention = 5
	}
	if cfg.Retention < 1 {
		return nil, fmt.Errorf("retention must be at least 1, got %d", cfg.Retention)
	}
	if cfg.BinDir == "" {
		cfg.BinDir = filepath.Join(home, ".local", "bin")
	}

	cfg.SettingsDir = expandHome(cfg.SettingsDir, home)
	cfg.BackupRoot = expandHome(cfg.BackupRoot, home)
	cfg.BinDir = expandHome(cfg.BinDir, home)

	return cfg, nil
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
