package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/teams-kdbx/internal/config"
)

func TestBuildLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		flags    CLIFlags
		enabled  slog.Level
		disabled slog.Level
	}{
		{"default info", "info", CLIFlags{}, slog.LevelInfo, slog.LevelDebug},
		{"config warn", "warn", CLIFlags{}, slog.LevelWarn, slog.LevelInfo},
		{"verbose wins", "error", CLIFlags{Verbose: true}, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet wins", "debug", CLIFlags{Quiet: true}, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			logger := buildLogger(config.LoggingConfig{LogLevel: tt.level, LogFormat: "text"}, tt.flags, &buf)
			h := logger.Handler()

			assert.True(t, h.Enabled(context.Background(), tt.enabled))
			assert.False(t, h.Enabled(context.Background(), tt.disabled))
		})
	}
}

func TestBuildLogger_Formats(t *testing.T) {
	var buf bytes.Buffer

	buildLogger(config.LoggingConfig{LogLevel: "info", LogFormat: "json"}, CLIFlags{}, &buf).Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])

	buf.Reset()
	buildLogger(config.LoggingConfig{LogLevel: "info", LogFormat: "text"}, CLIFlags{}, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

// A non-file writer is never a terminal, so auto picks JSON.
func TestUseJSONLogs_AutoNonTerminal(t *testing.T) {
	assert.True(t, useJSONLogs("auto", &bytes.Buffer{}))
	assert.False(t, useJSONLogs("text", &bytes.Buffer{}))
}

func TestMustCLIContext_PanicsWithoutPreRun(t *testing.T) {
	assert.Panics(t, func() { mustCLIContext(context.Background()) })
}

func TestConfigShow_AppliesFlags(t *testing.T) {
	cfgPath, _ := setupCLI(t, "https://graph.example.test/v1.0")

	stdout, _, err := runCLI(t, "--config", cfgPath, "--locale", "de", "--native-host", "--json", "config", "show")
	require.NoError(t, err)

	var shown config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &shown))
	assert.Equal(t, "de", shown.Locale)
	assert.True(t, shown.NativeHost)
	assert.Equal(t, "https://graph.example.test/v1.0", shown.Teams.GraphBaseURL)
}

func TestConfigShow_TOML(t *testing.T) {
	cfgPath, _ := setupCLI(t, "https://graph.example.test/v1.0")

	stdout, _, err := runCLI(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)

	assert.Contains(t, stdout, `graph_base_url = "https://graph.example.test/v1.0"`)
	assert.Contains(t, stdout, "[teams]")
}

func TestRoot_InvalidConfig(t *testing.T) {
	cfgPath, _ := setupCLI(t, "not-a-url")

	_, _, err := runCLI(t, "--config", cfgPath, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teams.graph_base_url")
}
