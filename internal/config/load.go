package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal errors with "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.LibraryDir != "" {
		cfg.Library.LibraryDir = env.LibraryDir
	}

	if env.DriveFolder != "" {
		cfg.Library.DriveFolder = env.DriveFolder
	}

	if cli.LibraryDir != nil {
		cfg.Library.LibraryDir = *cli.LibraryDir
	}

	if cli.DriveFolder != nil {
		cfg.Library.DriveFolder = *cli.DriveFolder
	}

	resolved, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	resolved.ConfigPath = cfgPath

	if err := ValidateResolved(resolved); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return resolved, nil
}

// resolve converts a validated Config into typed settings, filling path
// defaults and expanding tildes.
func resolve(cfg *Config) (*Resolved, error) {
	chunk, err := ParseSize(cfg.Transfers.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("chunk_size: %w", err)
	}

	r := &Resolved{
		LibraryDir:       absPath(cfg.Library.LibraryDir),
		DriveFolder:      cfg.Library.DriveFolder,
		Ignore:           cfg.Library.Ignore,
		SettingsFile:     pathOrDefault(cfg.Auth.SettingsFile, DefaultSettingsPath()),
		CredentialsFile:  pathOrDefault(cfg.Auth.CredentialsFile, DefaultCredentialsPath()),
		DBPath:           pathOrDefault(cfg.State.DBPath, DefaultDBPath()),
		ChunkSize:        chunk,
		ReplaceFiles:     cfg.Transfers.ReplaceFiles,
		WatchAddress:     cfg.Watch.Address,
		WatchToken:       cfg.Watch.Token,
		WatchListen:      cfg.Watch.Listen,
		LogLevel:         cfg.Logging.LogLevel,
		LogFile:          absPath(cfg.Logging.LogFile),
		LogFormat:        cfg.Logging.LogFormat,
		LogRetentionDays: cfg.Logging.LogRetentionDays,
		UserAgent:        cfg.Network.UserAgent,
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"ttl", cfg.Watch.TTL, &r.WatchTTL},
		{"debounce", cfg.Watch.Debounce, &r.WatchDebounce},
		{"connect_timeout", cfg.Network.ConnectTimeout, &r.ConnectTimeout},
		{"data_timeout", cfg.Network.DataTimeout, &r.DataTimeout},
	}

	for _, d := range durations {
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid duration %q: %w", d.name, d.value, err)
		}

		*d.dst = parsed
	}

	return r, nil
}

func pathOrDefault(configured, fallback string) string {
	if configured == "" {
		return fallback
	}

	return absPath(configured)
}

// absPath expands a tilde and makes the path absolute. Empty stays empty.
func absPath(p string) string {
	if p == "" {
		return ""
	}

	p = expandTilde(p)

	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}

	return p
}
