package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/indexsync/indexsync/internal/plugin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EngineSettings configuration for the search engine backend
type EngineSettings struct {
	BaseDir string `mapstructure:"base_dir"`
}

// QueueSettings configuration for the reindex backlog
type QueueSettings struct {
	DatabasePath string `mapstructure:"database_path"`
	Schedule     string `mapstructure:"schedule"`
}

// Settings application settings
type Settings struct {
	DataDir  string          `mapstructure:"data_dir"`
	LogLevel string          `mapstructure:"log_level"`
	Engine   EngineSettings  `mapstructure:"engine"`
	Queue    QueueSettings   `mapstructure:"queue"`
	Plugins  []plugin.Config `mapstructure:"plugins"`
}

// LoadSettings loads settings from the config file and environment.
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > config file > defaults.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("queue.schedule", "@every 1m")

	// Environment variables
	v.SetEnvPrefix("INDEXSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("data_dir", "INDEXSYNC_DATA_DIR")
	_ = v.BindEnv("log_level", "INDEXSYNC_LOG_LEVEL")
	_ = v.BindEnv("engine.base_dir", "INDEXSYNC_ENGINE_BASE_DIR")
	_ = v.BindEnv("queue.database_path", "INDEXSYNC_QUEUE_DATABASE_PATH")
	_ = v.BindEnv("queue.schedule", "INDEXSYNC_QUEUE_SCHEDULE")

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		_ = v.BindPFlag("data_dir", flags.Lookup("data-dir"))
		_ = v.BindPFlag("log_level", flags.Lookup("log-level"))
		_ = v.BindPFlag("engine.base_dir", flags.Lookup("engine-base-dir"))
		_ = v.BindPFlag("queue.database_path", flags.Lookup("queue-database-path"))
		_ = v.BindPFlag("queue.schedule", flags.Lookup("queue-schedule"))
	}

	// Plugin definitions live in the config file only.
	v.SetConfigName("indexsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dataDir := expandHomeDir(v.GetString("data_dir")); dataDir != "" {
		v.AddConfigPath(dataDir)
	}
	_ = v.ReadInConfig() // Ignore error if no config file exists

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.DataDir = expandHomeDir(settings.DataDir)

	// Derive component paths from the data dir when unset.
	if settings.Engine.BaseDir == "" {
		settings.Engine.BaseDir = filepath.Join(settings.DataDir, "engine")
	} else {
		settings.Engine.BaseDir = expandHomeDir(settings.Engine.BaseDir)
	}
	if settings.Queue.DatabasePath == "" {
		settings.Queue.DatabasePath = filepath.Join(settings.DataDir, "indexsync.db")
	} else {
		settings.Queue.DatabasePath = expandHomeDir(settings.Queue.DatabasePath)
	}

	return &settings, nil
}

// defaultDataDir returns the default data directory
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".indexsync"
	}
	return filepath.Join(home, ".indexsync")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// ValidateSettings checks for incomplete or conflicting configuration.
func ValidateSettings(s *Settings) error {
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return errors.New("log-level must be one of debug, info, warn, error, got: " + s.LogLevel)
	}

	if s.DataDir == "" {
		return errors.New("data-dir cannot be empty")
	}
	if s.Engine.BaseDir == "" {
		return errors.New("engine-base-dir cannot be empty")
	}
	if s.Queue.DatabasePath == "" {
		return errors.New("queue-database-path cannot be empty")
	}
	if s.Queue.Schedule != "" {
		if _, err := cron.ParseStandard(s.Queue.Schedule); err != nil {
			return fmt.Errorf("queue-schedule %q is not a valid cron spec: %w", s.Queue.Schedule, err)
		}
	}

	seen := make(map[string]bool)
	for i := range s.Plugins {
		p := &s.Plugins[i]
		if p.ID == "" {
			return errors.New("every plugin requires an id")
		}
		if seen[p.ID] {
			return errors.New("duplicate plugin id: " + p.ID)
		}
		seen[p.ID] = true
		if p.IndexName == "" {
			return errors.New("plugin " + p.ID + " requires an index_name")
		}
		if len(p.RecordTypes) == 0 {
			return errors.New("plugin " + p.ID + " requires at least one record type")
		}
	}
	return nil
}
