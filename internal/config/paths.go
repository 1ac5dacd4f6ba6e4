package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform identifiers.
const (
	platformLinux  = "linux"
	platformDarwin = "darwin"
)

// Application directory name used across all platforms.
const appName = "gdrive-go"

// File names inside the config and data directories.
const (
	configFileName      = "config.toml"
	settingsFileName    = "client_secrets.json"
	credentialsFileName = "gdrive_credentials.json"
	dbFileName          = "gdrive.db"
)

// DefaultConfigDir returns the platform-specific directory for config files.
// On Linux, respects XDG_CONFIG_HOME (defaults to ~/.config/gdrive-go).
// On macOS, uses ~/Library/Application Support/gdrive-go.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_CONFIG_HOME", home, ".config")
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".config", appName)
	}
}

// DefaultDataDir returns the platform-specific directory for application data
// (the path cache database and saved credentials).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	switch runtime.GOOS {
	case platformLinux:
		return xdgDir("XDG_DATA_HOME", home, filepath.Join(".local", "share"))
	case platformDarwin:
		return filepath.Join(home, "Library", "Application Support", appName)
	default:
		return filepath.Join(home, ".local", "share", appName)
	}
}

// xdgDir returns $envVar/gdrive-go when set, otherwise ~/fallback/gdrive-go.
func xdgDir(envVar, home, fallback string) string {
	if xdg := os.Getenv(envVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}

	return filepath.Join(home, fallback, appName)
}

// DefaultConfigPath returns the full path to the default config file.
func DefaultConfigPath() string {
	return joinIfDir(DefaultConfigDir(), configFileName)
}

// DefaultSettingsPath returns where the OAuth client settings file is
// expected when auth.settings_file is not set.
func DefaultSettingsPath() string {
	return joinIfDir(DefaultConfigDir(), settingsFileName)
}

// DefaultCredentialsPath returns where "login" saves credentials when
// auth.credentials_file is not set.
func DefaultCredentialsPath() string {
	return joinIfDir(DefaultDataDir(), credentialsFileName)
}

// DefaultDBPath returns the default path cache database location.
func DefaultDBPath() string {
	return joinIfDir(DefaultDataDir(), dbFileName)
}

func joinIfDir(dir, name string) string {
	if dir == "" {
		return ""
	}

	return filepath.Join(dir, name)
}

// expandTilde replaces a leading "~" with the user's home directory.
// Paths without a tilde prefix are returned unchanged.
func expandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
