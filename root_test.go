package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/gdrive-go/internal/config"
)

// newRootCmd binds flags with StringVar/BoolVar, which resets the globals.
// Tests set globals after building the command, or drive it with SetArgs.

func resetFlags(t *testing.T) {
	t.Helper()

	oldVerbose, oldQuiet, oldJSON := flagVerbose, flagQuiet, flagJSON

	t.Cleanup(func() {
		flagVerbose, flagQuiet, flagJSON = oldVerbose, oldQuiet, oldJSON
	})

	flagVerbose, flagQuiet, flagJSON = false, false, false
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Resolved
		verbose bool
		quiet   bool
		want    slog.Level
	}{
		{"no config", nil, false, false, slog.LevelInfo},
		{"config debug", &config.Resolved{LogLevel: "debug"}, false, false, slog.LevelDebug},
		{"config warn", &config.Resolved{LogLevel: "warn"}, false, false, slog.LevelWarn},
		{"config error", &config.Resolved{LogLevel: "error"}, false, false, slog.LevelError},
		{"verbose wins", &config.Resolved{LogLevel: "error"}, true, false, slog.LevelDebug},
		{"quiet wins", &config.Resolved{LogLevel: "debug"}, false, true, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)

			flagVerbose, flagQuiet = tt.verbose, tt.quiet

			assert.Equal(t, tt.want, logLevel(tt.cfg))
		})
	}
}

func TestBuildLogger_Formats(t *testing.T) {
	resetFlags(t)

	var buf bytes.Buffer

	buildLogger(&config.Resolved{LogLevel: "info", LogFormat: "json"}, &buf).Info("hello", slog.String("k", "v"))
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())

	buf.Reset()
	buildLogger(&config.Resolved{LogLevel: "info", LogFormat: "text"}, &buf).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")

	// A writer that is not a terminal gets JSON in auto mode.
	buf.Reset()
	buildLogger(&config.Resolved{LogLevel: "info", LogFormat: "auto"}, &buf).Info("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), buf.String())
}

func TestBuildLogger_LevelFiltering(t *testing.T) {
	resetFlags(t)

	var buf bytes.Buffer

	logger := buildLogger(&config.Resolved{LogLevel: "warn", LogFormat: "text"}, &buf)
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
}

func TestBuildLogger_LogFile(t *testing.T) {
	resetFlags(t)

	path := filepath.Join(t.TempDir(), "logs", "gdrive-go.log")

	var stderr bytes.Buffer

	logger := buildLogger(&config.Resolved{
		LogLevel:         "info",
		LogFormat:        "json",
		LogFile:          path,
		LogRetentionDays: 7,
	}, &stderr)
	logger.Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
	assert.Empty(t, stderr.String())
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{
		"login", "logout", "status", "ls", "roots", "get", "put", "copy", "mkdir", "mv",
		"rename", "rm", "share", "sync", "cache", "watch", "watch-file",
		"stop-channel", "change", "serve", "config",
	} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func writeTestConfig(t *testing.T, body string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestRootCmd_StatusNotReady(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, `
[library]
library_dir = "`+dir+`"

[auth]
settings_file = "`+filepath.Join(dir, "settings.json")+`"
credentials_file = "`+filepath.Join(dir, "creds.json")+`"

[state]
db_path = "`+filepath.Join(dir, "gdrive.db")+`"
`)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--quiet", "status"})
	require.NoError(t, cmd.Execute())
}

func TestRootCmd_RemoteCommandRequiresLogin(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, `
[auth]
settings_file = "`+filepath.Join(dir, "settings.json")+`"
credentials_file = "`+filepath.Join(dir, "creds.json")+`"
`)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--quiet", "ls"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotReady)
}

func TestRootCmd_BadConfig(t *testing.T) {
	cfgPath := writeTestConfig(t, "[library]\nlibary_dir = \"x\"\n")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "status"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestRootCmd_CacheShowAndClear(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, `
[state]
db_path = "`+filepath.Join(dir, "gdrive.db")+`"
`)

	for _, args := range [][]string{
		{"--config", cfgPath, "--quiet", "cache", "show"},
		{"--config", cfgPath, "--quiet", "cache", "clear"},
		{"--config", cfgPath, "--quiet", "cache", "delete", "missing-id"},
	} {
		cmd := newRootCmd()
		cmd.SetArgs(args)
		require.NoError(t, cmd.Execute(), args)
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "--quiet", "cache", "rename", "missing-id", "x/"})
	assert.Error(t, cmd.Execute())
}
