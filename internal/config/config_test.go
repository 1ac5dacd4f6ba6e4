package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_AllFieldsPopulated(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, "~/Calibre Library", cfg.Library.LibraryDir)
	assert.Equal(t, "Calibre", cfg.Library.DriveFolder)
	assert.Contains(t, cfg.Library.Ignore, "gdrive.db")

	assert.Empty(t, cfg.Auth.SettingsFile)
	assert.Empty(t, cfg.Auth.CredentialsFile)
	assert.Empty(t, cfg.State.DBPath)

	assert.Equal(t, "1MiB", cfg.Transfers.ChunkSize)
	assert.True(t, cfg.Transfers.ReplaceFiles)

	assert.Empty(t, cfg.Watch.Address)
	assert.Equal(t, "127.0.0.1:8085", cfg.Watch.Listen)
	assert.Equal(t, "24h", cfg.Watch.TTL)
	assert.Equal(t, "2s", cfg.Watch.Debounce)

	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, "auto", cfg.Logging.LogFormat)
	assert.Equal(t, 30, cfg.Logging.LogRetentionDays)

	assert.Equal(t, "10s", cfg.Network.ConnectTimeout)
	assert.Equal(t, "60s", cfg.Network.DataTimeout)
	assert.Equal(t, "gdrive-go/0.1", cfg.Network.UserAgent)
}

func TestDefaultConfig_Validates(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestDefaultConfig_IgnoreIsCopied(t *testing.T) {
	a := DefaultConfig()
	a.Library.Ignore[0] = "changed"

	b := DefaultConfig()
	assert.Equal(t, "gdrive.db", b.Library.Ignore[0])
}
