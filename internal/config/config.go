// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for gdrive-go. It supports a four-layer
// override chain (defaults -> config file -> environment -> CLI flags) and
// resolves the raw file values into typed settings for the rest of the
// program.
package config

import "time"

// Config is the top-level configuration structure parsed from a TOML file.
// Every section is optional; missing sections keep their defaults.
type Config struct {
	Library   LibraryConfig   `toml:"library"`
	Auth      AuthConfig      `toml:"auth"`
	State     StateConfig     `toml:"state"`
	Transfers TransfersConfig `toml:"transfers"`
	Watch     WatchConfig     `toml:"watch"`
	Logging   LoggingConfig   `toml:"logging"`
	Network   NetworkConfig   `toml:"network"`
}

// LibraryConfig locates the local library and its remote counterpart.
// DriveFolder is the name of the folder at the Drive account root that
// mirrors LibraryDir.
type LibraryConfig struct {
	LibraryDir  string   `toml:"library_dir"`
	DriveFolder string   `toml:"drive_folder"`
	Ignore      []string `toml:"ignore"`
}

// AuthConfig names the two files that must exist before remote features are
// offered: the OAuth client settings downloaded from the Google Cloud console
// and the saved user credentials written by "login".
type AuthConfig struct {
	SettingsFile    string `toml:"settings_file"`
	CredentialsFile string `toml:"credentials_file"`
}

// StateConfig controls where the path cache database lives.
type StateConfig struct {
	DBPath string `toml:"db_path"`
}

// TransfersConfig controls chunked downloads and upload overwrite behavior.
type TransfersConfig struct {
	ChunkSize    string `toml:"chunk_size"`
	ReplaceFiles bool   `toml:"replace_files"`
}

// WatchConfig configures push notification channels. Address is the public
// HTTPS URL Google delivers notifications to; Listen is the local address the
// receiver binds. Debounce applies to local filesystem watching.
type WatchConfig struct {
	Address  string `toml:"address"`
	Token    string `toml:"token"`
	Listen   string `toml:"listen"`
	TTL      string `toml:"ttl"`
	Debounce string `toml:"debounce"`
}

// LoggingConfig controls log output behavior: level, format, and rotation.
type LoggingConfig struct {
	LogLevel         string `toml:"log_level"`
	LogFile          string `toml:"log_file"`
	LogFormat        string `toml:"log_format"`
	LogRetentionDays int    `toml:"log_retention_days"`
}

// NetworkConfig controls HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout string `toml:"connect_timeout"`
	DataTimeout    string `toml:"data_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to zero value".
type CLIOverrides struct {
	ConfigPath  string  // --config flag (empty = use default)
	LibraryDir  *string // --library-dir flag
	DriveFolder *string // --folder flag
}

// Resolved is the fully merged, typed configuration consumed by the CLI.
// Durations and sizes are parsed, paths are expanded and absolute.
type Resolved struct {
	ConfigPath string

	LibraryDir  string
	DriveFolder string
	Ignore      []string

	SettingsFile    string
	CredentialsFile string
	DBPath          string

	ChunkSize    int64
	ReplaceFiles bool

	WatchAddress  string
	WatchToken    string
	WatchListen   string
	WatchTTL      time.Duration
	WatchDebounce time.Duration

	LogLevel         string
	LogFile          string
	LogFormat        string
	LogRetentionDays int

	ConnectTimeout time.Duration
	DataTimeout    time.Duration
	UserAgent      string
}
