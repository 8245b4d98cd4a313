package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/indexsync/indexsync/internal/plugin"
)

func TestLog(t *testing.T) {
	// Just verify it doesn't panic
	s := &Settings{
		DataDir:  "/tmp/indexsync",
		LogLevel: "info",
	}
	Log(s) // Should not panic
}

func TestLogWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := &Settings{
		DataDir:  "/tmp/indexsync",
		LogLevel: "info",
		Engine:   EngineSettings{BaseDir: "/tmp/indexsync/engine"},
		Queue: QueueSettings{
			DatabasePath: "/tmp/indexsync/queue.db",
			Schedule:     "@every 5m",
		},
		Plugins: []plugin.Config{
			{ID: "content", IndexName: "content", RecordTypes: []string{"node"}},
		},
	}

	LogWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "data_dir") {
		t.Error("Expected 'data_dir' in log output")
	}
	if !strings.Contains(output, "queue.schedule") {
		t.Error("Expected 'queue.schedule' in log output")
	}
	if !strings.Contains(output, "content") {
		t.Error("Expected the plugin id in log output")
	}
}

func TestSetupLogging_Levels(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		SetupLogging(&Settings{LogLevel: level}) // Should not panic
	}
}
