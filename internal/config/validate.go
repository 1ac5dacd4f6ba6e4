package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Validation range constants.
const (
	minChunkBytes     = 256 * 1024
	maxChunkBytes     = 256 * 1024 * 1024
	minLogRetention   = 1
	minConnectTimeout = 1 * time.Second
	minDataTimeout    = 5 * time.Second
	minWatchTTL       = 1 * time.Minute
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validLogFormats = map[string]bool{"auto": true, "text": true, "json": true}

// Validate checks all configuration values and returns all errors found.
// It accumulates every error rather than stopping at the first, so users
// see a complete report and can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateLibrary(&cfg.Library)...)
	errs = append(errs, validateTransfers(&cfg.Transfers)...)
	errs = append(errs, validateWatch(&cfg.Watch)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)
	errs = append(errs, validateNetwork(&cfg.Network)...)

	return errors.Join(errs...)
}

// ValidateResolved checks constraints that only make sense after the
// override chain has been applied.
func ValidateResolved(r *Resolved) error {
	var errs []error

	if r.LibraryDir != "" && !filepath.IsAbs(r.LibraryDir) {
		errs = append(errs, fmt.Errorf("library_dir: must be absolute after expansion, got %q", r.LibraryDir))
	}

	if strings.TrimSpace(r.DriveFolder) == "" {
		errs = append(errs, errors.New("drive_folder: must not be empty"))
	}

	return errors.Join(errs...)
}

func validateLibrary(l *LibraryConfig) []error {
	var errs []error

	if strings.Contains(l.DriveFolder, "/") {
		errs = append(errs, fmt.Errorf("drive_folder: must be a single folder name, got %q", l.DriveFolder))
	}

	for _, pattern := range l.Ignore {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, errors.New("ignore: empty pattern"))
		}
	}

	return errs
}

func validateTransfers(t *TransfersConfig) []error {
	n, err := ParseSize(t.ChunkSize)
	if err != nil {
		return []error{fmt.Errorf("chunk_size: %w", err)}
	}

	if n < minChunkBytes || n > maxChunkBytes {
		return []error{fmt.Errorf("chunk_size: must be between 256KiB and 256MiB, got %q", t.ChunkSize)}
	}

	return nil
}

func validateWatch(w *WatchConfig) []error {
	var errs []error

	if w.Address != "" && !strings.HasPrefix(w.Address, "https://") {
		errs = append(errs, fmt.Errorf("address: notifications require an https URL, got %q", w.Address))
	}

	if err := checkDuration("ttl", w.TTL, minWatchTTL); err != nil {
		errs = append(errs, err)
	}

	if err := checkDuration("debounce", w.Debounce, 0); err != nil {
		errs = append(errs, err)
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !validLogLevels[l.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", l.LogLevel))
	}

	if !validLogFormats[l.LogFormat] {
		errs = append(errs, fmt.Errorf("log_format: must be one of auto, text, json; got %q", l.LogFormat))
	}

	if l.LogRetentionDays < minLogRetention {
		errs = append(errs, fmt.Errorf("log_retention_days: must be >= %d, got %d", minLogRetention, l.LogRetentionDays))
	}

	return errs
}

func validateNetwork(n *NetworkConfig) []error {
	var errs []error

	if err := checkDuration("connect_timeout", n.ConnectTimeout, minConnectTimeout); err != nil {
		errs = append(errs, err)
	}

	if err := checkDuration("data_timeout", n.DataTimeout, minDataTimeout); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// checkDuration parses value and enforces a lower bound.
func checkDuration(field, value string, minimum time.Duration) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", field, value, err)
	}

	if d < minimum {
		return fmt.Errorf("%s: must be >= %s, got %s", field, minimum, d)
	}

	return nil
}
