package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-go/internal/config"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
	"github.com/tonimelisma/gdrive-go/internal/tokenfile"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether remote features are ready",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Ready           bool   `json:"ready"`
	SettingsFile    string `json:"settings_file"`
	CredentialsFile string `json:"credentials_file"`
	LibraryDir      string `json:"library_dir"`
	DriveFolder     string `json:"drive_folder"`
	TokenExpiry     string `json:"token_expiry,omitempty"`
	CachedPaths     int    `json:"cached_paths"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)
	cfg := cc.Cfg

	out := statusOutput{
		Ready:           config.Ready(cfg),
		SettingsFile:    cfg.SettingsFile,
		CredentialsFile: cfg.CredentialsFile,
		LibraryDir:      cfg.LibraryDir,
		DriveFolder:     cfg.DriveFolder,
	}

	if creds, err := tokenfile.Load(cfg.CredentialsFile); err == nil && creds != nil && !creds.Token.Expiry.IsZero() {
		out.TokenExpiry = formatTime(creds.Token.Expiry)
	}

	if _, err := os.Stat(cfg.DBPath); err == nil {
		store, err := pathcache.Open(cmd.Context(), cfg.DBPath, cc.Logger)
		if err != nil {
			return err
		}
		defer store.Close()

		if out.CachedPaths, err = store.Count(cmd.Context()); err != nil {
			return err
		}
	}

	if cc.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	ready := "no (run 'gdrive-go login')"
	if out.Ready {
		ready = "yes"
	}

	fmt.Printf("Ready:        %s\n", ready)
	fmt.Printf("Settings:     %s\n", out.SettingsFile)
	fmt.Printf("Credentials:  %s\n", out.CredentialsFile)
	fmt.Printf("Library:      %s\n", out.LibraryDir)
	fmt.Printf("Drive folder: %s\n", out.DriveFolder)

	if out.TokenExpiry != "" {
		fmt.Printf("Token expiry: %s\n", out.TokenExpiry)
	}

	fmt.Printf("Cached paths: %d\n", out.CachedPaths)

	return nil
}
