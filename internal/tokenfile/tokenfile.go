// Package tokenfile reads and writes the saved Google credentials file. The
// file holds the OAuth2 token together with the client ID it was issued to,
// so a token minted for a different client settings file is detected instead
// of failing later with an opaque refresh error.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

// FilePerms restricts credential files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the credentials directory.
const DirPerms = 0o700

// Credentials is the on-disk format of the credentials file.
type Credentials struct {
	Token    *oauth2.Token `json:"token"`
	ClientID string        `json:"client_id,omitempty"`
	SavedAt  time.Time     `json:"saved_at"`
}

// Load reads saved credentials. Returns (nil, nil) if the file does not exist.
func Load(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("tokenfile: decoding %s: %w", path, err)
	}

	if c.Token == nil {
		return nil, fmt.Errorf("tokenfile: %s missing token field (re-login required)", path)
	}

	return &c, nil
}

// Save writes credentials atomically (temp file + rename) with 0600
// permissions, stamping SavedAt. Never logs token values.
func Save(path string, c *Credentials) error {
	c.SavedAt = time.Now().UTC()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	dir := filepath.Dir(path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("tokenfile: creating directory %s: %w", dir, mkErr)
	}

	// Same directory guarantees same filesystem for rename(2).
	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := writeSynced(tmp, data); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tokenfile: renaming: %w", err)
	}

	success = true

	return nil
}

// writeSynced restricts permissions, writes data, fsyncs, and closes f.
func writeSynced(f *os.File, data []byte) error {
	if err := f.Chmod(FilePerms); err != nil {
		f.Close()
		return fmt.Errorf("tokenfile: setting permissions: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	return nil
}

// Remove deletes the credentials file. A missing file is not an error.
func Remove(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return true, nil
}
