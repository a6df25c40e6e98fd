// Package config is the viper-backed settings singleton for the
// docstore CLI and its library callers: where datastores live on disk,
// how replication paces itself, and where logs go. Precedence and
// discovery mirror the teacher's internal/config (walk-up-from-cwd,
// then user config dir, then home dir, with DOCSTORE_-prefixed env vars
// overriding the file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper singleton. Call once at startup before
// any Get* function is used.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	// 1. Walk up from cwd looking for .docstore/config.yaml, so
	//    commands work the same from any subdirectory of a project.
	if cwd, err := os.Getwd(); err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".docstore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory (~/.config/docstore/config.yaml).
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "docstore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory (~/.docstore/config.yaml).
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".docstore", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file.
	// DOCSTORE_LOCK_TIMEOUT maps to "lock-timeout", etc.
	v.SetEnvPrefix("DOCSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("root", defaultRoot())
	v.SetDefault("lock-timeout", "5s")
	v.SetDefault("revsdiff-concurrency", 8)
	v.SetDefault("log.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max-size-mb", 50)
	v.SetDefault("log.max-backups", 3)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// defaultRoot is where datastores live absent any override: a
// "docstore" directory under the user's data/cache home.
func defaultRoot() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "docstore")
	}
	return ".docstore"
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set overrides a configuration value at runtime, mainly for tests.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// ConfigFileUsed returns the path of the config file that was loaded,
// or "" if none was found and defaults/env vars are in effect.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}
