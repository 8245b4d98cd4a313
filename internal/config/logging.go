package config

import (
	"context"
	"log/slog"
	"os"
)

// SetupLogging configures the default logger on stderr at the configured
// level.
func SetupLogging(s *Settings) {
	level := slog.LevelInfo
	switch s.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// Log logs the resolved settings in a granular way
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: data_dir", "value", s.DataDir)
	logger.InfoContext(ctx, "Config: log_level", "value", s.LogLevel)
	logger.InfoContext(ctx, "Config: engine.base_dir", "value", s.Engine.BaseDir)
	logger.InfoContext(ctx, "Config: queue.database_path", "value", s.Queue.DatabasePath)
	logger.InfoContext(ctx, "Config: queue.schedule", "value", s.Queue.Schedule)
	logger.InfoContext(ctx, "Config: plugins", "count", len(s.Plugins))
	for _, p := range s.Plugins {
		logger.InfoContext(ctx, "Config: plugin", "id", p.ID, "index_name", p.IndexName,
			"record_types", p.RecordTypes, "deferred", p.Deferred)
	}
}
