package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	})

	return cmd
}

// configOutput is the JSON schema for `config show --json`. The watch token
// is reported only as set or unset.
type configOutput struct {
	ConfigPath      string   `json:"config_path"`
	LibraryDir      string   `json:"library_dir"`
	DriveFolder     string   `json:"drive_folder"`
	Ignore          []string `json:"ignore"`
	SettingsFile    string   `json:"settings_file"`
	CredentialsFile string   `json:"credentials_file"`
	Ready           bool     `json:"ready"`
	DBPath          string   `json:"db_path"`
	ChunkSize       int64    `json:"chunk_size"`
	ReplaceFiles    bool     `json:"replace_files"`
	WatchAddress    string   `json:"watch_address"`
	WatchListen     string   `json:"watch_listen"`
	WatchTokenSet   bool     `json:"watch_token_set"`
	LogLevel        string   `json:"log_level"`
	LogFile         string   `json:"log_file"`
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)
	r := cc.Cfg

	if cc.JSON {
		return printJSON(os.Stdout, configOutput{
			ConfigPath:      r.ConfigPath,
			LibraryDir:      r.LibraryDir,
			DriveFolder:     r.DriveFolder,
			Ignore:          r.Ignore,
			SettingsFile:    r.SettingsFile,
			CredentialsFile: r.CredentialsFile,
			Ready:           config.Ready(r),
			DBPath:          r.DBPath,
			ChunkSize:       r.ChunkSize,
			ReplaceFiles:    r.ReplaceFiles,
			WatchAddress:    r.WatchAddress,
			WatchListen:     r.WatchListen,
			WatchTokenSet:   r.WatchToken != "",
			LogLevel:        r.LogLevel,
			LogFile:         r.LogFile,
		})
	}

	return config.RenderEffective(r, os.Stdout)
}
