// Package testutil provides shared environment helpers for E2E tests. It
// depends only on stdlib so that E2E tests (which cannot import internal/)
// can use it.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the E2E harness.
const (
	EnvTestFolder     = "GDRIVE_GO_TEST_FOLDER"
	EnvAllowedFolders = "GDRIVE_GO_ALLOWED_TEST_FOLDERS"
)

// LoadDotEnv reads KEY=VALUE pairs from a .env file. A missing file is not
// an error. Variables already set in the environment win.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// RequireAllowedFolder exits the process unless the Drive folder named by
// GDRIVE_GO_TEST_FOLDER is listed in GDRIVE_GO_ALLOWED_TEST_FOLDERS. E2E
// tests create and delete files, so they only run against folders that
// were explicitly set aside. Returns the folder name.
func RequireAllowedFolder() string {
	folder := os.Getenv(EnvTestFolder)
	if folder == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", EnvTestFolder)
		os.Exit(1)
	}

	for _, a := range strings.Split(os.Getenv(EnvAllowedFolders), ",") {
		if strings.TrimSpace(a) == folder {
			return folder
		}
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s=%q is not in %s\n", EnvTestFolder, folder, EnvAllowedFolders)
	os.Exit(1)

	return ""
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// FindTestCredentialDir locates .testdata/ below moduleRoot. It must hold
// settings.json (OAuth client settings) and credentials.json (a saved login).
func FindTestCredentialDir(moduleRoot string) string {
	dir := filepath.Join(moduleRoot, ".testdata")

	for _, name := range []string{"settings.json", "credentials.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s not found in %s\n", name, dir)
			fmt.Fprintln(os.Stderr, "Run 'gdrive-go login' with a test config and copy both files there.")
			os.Exit(1)
		}
	}

	return dir
}

// CopyFile copies src to dst with perm. Exits on failure because tests
// cannot proceed without the file.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: cannot read %s: %v\n", src, err)
		os.Exit(1)
	}

	if err := os.WriteFile(dst, data, perm); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: writing %s: %v\n", dst, err)
		os.Exit(1)
	}
}
