package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain.
const (
	defaultLibraryDir       = "~/Calibre Library"
	defaultDriveFolder      = "Calibre"
	defaultChunkSize        = "1MiB"
	defaultWatchListen      = "127.0.0.1:8085"
	defaultWatchTTL         = "24h"
	defaultWatchDebounce    = "2s"
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultLogRetentionDays = 30
	defaultConnectTimeout   = "10s"
	defaultDataTimeout      = "60s"
	defaultUserAgent        = "gdrive-go/0.1"
)

// defaultIgnore lists library files that must never be mirrored: the path
// cache itself and SQLite side files of the library database.
var defaultIgnore = []string{
	"gdrive.db",
	"metadata.db-journal",
	"metadata.db-wal",
	"metadata.db-shm",
}

// DefaultConfig returns a Config populated with all default values.
// This is used both as the starting point for TOML decoding (so unset
// fields retain defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Library: LibraryConfig{
			LibraryDir:  defaultLibraryDir,
			DriveFolder: defaultDriveFolder,
			Ignore:      append([]string(nil), defaultIgnore...),
		},
		Transfers: TransfersConfig{
			ChunkSize:    defaultChunkSize,
			ReplaceFiles: true,
		},
		Watch: WatchConfig{
			Listen:   defaultWatchListen,
			TTL:      defaultWatchTTL,
			Debounce: defaultWatchDebounce,
		},
		Logging: LoggingConfig{
			LogLevel:         defaultLogLevel,
			LogFormat:        defaultLogFormat,
			LogRetentionDays: defaultLogRetentionDays,
		},
		Network: NetworkConfig{
			ConnectTimeout: defaultConnectTimeout,
			DataTimeout:    defaultDataTimeout,
			UserAgent:      defaultUserAgent,
		},
	}
}
