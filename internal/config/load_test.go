package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes content to a config.toml in a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_ValidFile(t *testing.T) {
	path := writeConfig(t, `
[library]
library_dir = "/srv/books"
drive_folder = "Books"
ignore = ["metadata.db", "*.tmp"]

[transfers]
chunk_size = "4MiB"
replace_files = false

[watch]
address = "https://books.example.com/gdrive/watch"
token = "secret"

[logging]
log_level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/books", cfg.Library.LibraryDir)
	assert.Equal(t, "Books", cfg.Library.DriveFolder)
	assert.Equal(t, []string{"metadata.db", "*.tmp"}, cfg.Library.Ignore)
	assert.Equal(t, "4MiB", cfg.Transfers.ChunkSize)
	assert.False(t, cfg.Transfers.ReplaceFiles)
	assert.Equal(t, "https://books.example.com/gdrive/watch", cfg.Watch.Address)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)

	// Unset sections keep defaults.
	assert.Equal(t, "10s", cfg.Network.ConnectTimeout)
	assert.Equal(t, "127.0.0.1:8085", cfg.Watch.Listen)
}

func TestLoad_UnknownKeySuggestion(t *testing.T) {
	path := writeConfig(t, `
[library]
drive_foldr = "Books"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config key "drive_foldr" in [library]`)
	assert.Contains(t, err.Error(), `did you mean "drive_folder"`)
}

func TestLoad_UnknownSection(t *testing.T) {
	path := writeConfig(t, `
[transfer]
chunk_size = "1MiB"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown config section "transfer"`)
	assert.Contains(t, err.Error(), `did you mean "transfers"`)
}

func TestLoad_ValidationErrorsAccumulate(t *testing.T) {
	path := writeConfig(t, `
[transfers]
chunk_size = "1KB"

[logging]
log_level = "loud"
log_format = "xml"

[watch]
address = "http://insecure.example.com"
`)

	_, err := Load(path)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "chunk_size")
	assert.Contains(t, msg, "log_level")
	assert.Contains(t, msg, "log_format")
	assert.Contains(t, msg, "address")
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeConfig(t, "[library\nlibrary_dir = ")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestResolve_OverrideChain(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	path := writeConfig(t, `
[library]
library_dir = "/from/file"
drive_folder = "FileFolder"
`)

	libFromCLI := "/from/cli"

	resolved, err := Resolve(
		EnvOverrides{LibraryDir: "/from/env", DriveFolder: "EnvFolder"},
		CLIOverrides{ConfigPath: path, LibraryDir: &libFromCLI},
	)
	require.NoError(t, err)

	assert.Equal(t, path, resolved.ConfigPath)
	assert.Equal(t, "/from/cli", resolved.LibraryDir, "CLI beats env and file")
	assert.Equal(t, "EnvFolder", resolved.DriveFolder, "env beats file")
}

func TestResolve_TypedValues(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataDir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path := writeConfig(t, `
[library]
library_dir = "/srv/books"

[transfers]
chunk_size = "2MiB"

[watch]
debounce = "500ms"
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, int64(2<<20), resolved.ChunkSize)
	assert.Equal(t, 500*time.Millisecond, resolved.WatchDebounce)
	assert.Equal(t, 24*time.Hour, resolved.WatchTTL)
	assert.Equal(t, 10*time.Second, resolved.ConnectTimeout)
	assert.True(t, strings.HasSuffix(resolved.SettingsFile, "client_secrets.json"))
	assert.True(t, strings.HasSuffix(resolved.CredentialsFile, "gdrive_credentials.json"))
	assert.True(t, strings.HasSuffix(resolved.DBPath, "gdrive.db"))
}

func TestResolve_EmptyDriveFolderRejected(t *testing.T) {
	path := writeConfig(t, `
[library]
library_dir = "/srv/books"
`)

	empty := ""

	_, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path, DriveFolder: &empty})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drive_folder")
}

func TestResolve_TildeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := writeConfig(t, `
[library]
library_dir = "~/Books"

[state]
db_path = "~/state/cache.db"
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "Books"), resolved.LibraryDir)
	assert.Equal(t, filepath.Join(home, "state", "cache.db"), resolved.DBPath)
}

func TestRenderEffective(t *testing.T) {
	path := writeConfig(t, `
[library]
library_dir = "/srv/books"
drive_folder = "Books"

[watch]
token = "hunter2"
`)

	resolved, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, RenderEffective(resolved, &sb))

	out := sb.String()
	assert.Contains(t, out, `drive_folder      = "Books"`)
	assert.Contains(t, out, "token             = (set)")
	assert.NotContains(t, out, "hunter2")
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc"))
	assert.Equal(t, 1, levenshtein("drive_foldr", "drive_folder"))
	assert.Equal(t, 3, levenshtein("", "abc"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
