package config

import "os"

// Ready reports whether both the OAuth client settings file and the saved
// credentials file exist. Callers use it to decide whether remote library
// features should be offered at all; it does not validate file contents.
func Ready(r *Resolved) bool {
	return fileExists(r.SettingsFile) && fileExists(r.CredentialsFile)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)

	return err == nil && !info.IsDir()
}
