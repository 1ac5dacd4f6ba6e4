package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig      = "GDRIVE_GO_CONFIG"
	EnvLibraryDir  = "GDRIVE_GO_LIBRARY_DIR"
	EnvDriveFolder = "GDRIVE_GO_FOLDER"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath  string // GDRIVE_GO_CONFIG: override config file path
	LibraryDir  string // GDRIVE_GO_LIBRARY_DIR: local library override
	DriveFolder string // GDRIVE_GO_FOLDER: remote library folder override
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
// This does not modify the Config; Resolve applies the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath:  os.Getenv(EnvConfig),
		LibraryDir:  os.Getenv(EnvLibraryDir),
		DriveFolder: os.Getenv(EnvDriveFolder),
	}
}
