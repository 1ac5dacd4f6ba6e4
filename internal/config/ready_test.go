package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReady(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "client_secrets.json")
	creds := filepath.Join(dir, "gdrive_credentials.json")

	r := &Resolved{SettingsFile: settings, CredentialsFile: creds}
	assert.False(t, Ready(r), "neither file exists")

	require.NoError(t, os.WriteFile(settings, []byte("{}"), 0o600))
	assert.False(t, Ready(r), "credentials missing")

	require.NoError(t, os.WriteFile(creds, []byte("{}"), 0o600))
	assert.True(t, Ready(r))
}

func TestReady_DirectoryIsNotAFile(t *testing.T) {
	dir := t.TempDir()
	settings := filepath.Join(dir, "settings")
	require.NoError(t, os.Mkdir(settings, 0o700))

	creds := filepath.Join(dir, "creds")
	require.NoError(t, os.WriteFile(creds, []byte("{}"), 0o600))

	assert.False(t, Ready(&Resolved{SettingsFile: settings, CredentialsFile: creds}))
}

func TestReady_EmptyPaths(t *testing.T) {
	assert.False(t, Ready(&Resolved{}))
}
