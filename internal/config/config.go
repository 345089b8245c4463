// Package config provides configuration types, defaults, and the layered
// loader for the pitwall server.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all configuration for the pitwall server.
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Arena  ArenaConfig  `yaml:"arena" mapstructure:"arena"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"` // Listen address (default ":8080")
}

// ArenaConfig holds the scheduling parameters.
type ArenaConfig struct {
	Slots       int           `yaml:"slots" mapstructure:"slots"`               // Number of arena slots
	RunDuration time.Duration `yaml:"run_duration" mapstructure:"run_duration"` // Run length for future starts
	SeedFile    string        `yaml:"seed_file" mapstructure:"seed_file"`       // Optional roster to load into an empty store
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"` // SQLite database path (":memory:" for testing)
}

// LogConfig holds logging settings. An empty File logs to stderr; a set File
// gets lumberjack rotation per the Rotation settings.
type LogConfig struct {
	Level    string         `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format   string         `yaml:"format" mapstructure:"format"` // text, json
	File     string         `yaml:"file" mapstructure:"file"`
	Rotation RotationConfig `yaml:"rotation" mapstructure:"rotation"`
}

// RotationConfig holds settings for log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// Default returns sensible defaults: four slots, five-minute runs, a local
// database file, and human-readable logs on stderr.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Arena: ArenaConfig{
			Slots:       4,
			RunDuration: 5 * time.Minute,
		},
		Store: StoreConfig{
			DBPath: "pitwall.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Rotation: RotationConfig{
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 7,
				Compress:   true,
			},
		},
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Arena.Slots <= 0 {
		return fmt.Errorf("arena.slots must be positive, got %d", c.Arena.Slots)
	}
	if c.Arena.RunDuration <= 0 {
		return fmt.Errorf("arena.run_duration must be positive, got %s", c.Arena.RunDuration)
	}
	if c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path must not be empty")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	return nil
}
