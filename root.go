package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tonimelisma/gdrive-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath  string
	flagLibraryDir  string
	flagDriveFolder string
	flagJSON        bool
	flagVerbose     bool
	flagQuiet       bool
)

// CLIContext carries what every command needs after the root pre-run:
// the resolved configuration, a logger built from it, and output flags.
type CLIContext struct {
	Cfg    *config.Resolved
	Logger *slog.Logger
	JSON   bool
	Quiet  bool
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext stored by PersistentPreRunE.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)
	return cc
}

// mustCLIContext is cliContextFrom for RunE handlers, where the pre-run
// has always executed.
func mustCLIContext(cmd *cobra.Command) *CLIContext {
	cc := cliContextFrom(cmd.Context())
	if cc == nil {
		panic("gdrive-go: command ran without CLIContext")
	}

	return cc
}

// newRootCmd builds the root command with every subcommand registered.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gdrive-go",
		Short:   "Google Drive library sync",
		Long:    "Mirror a local book library to a Google Drive folder and serve its files back.",
		Version: version,
		// Errors are printed by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			cc := &CLIContext{
				Cfg:    cfg,
				Logger: buildLogger(cfg, os.Stderr),
				JSON:   flagJSON,
				Quiet:  flagQuiet,
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagLibraryDir, "library-dir", "", "local library directory")
	cmd.PersistentFlags().StringVar(&flagDriveFolder, "folder", "", "library folder at the Drive root")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newLsCmd())
	cmd.AddCommand(newRootsCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newPutCmd())
	cmd.AddCommand(newCopyCmd())
	cmd.AddCommand(newMkdirCmd())
	cmd.AddCommand(newMvCmd())
	cmd.AddCommand(newRenameCmd())
	cmd.AddCommand(newRmCmd())
	cmd.AddCommand(newShareCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newWatchFileCmd())
	cmd.AddCommand(newStopChannelCmd())
	cmd.AddCommand(newChangeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the four-layer
// override chain. Only flags the user actually set override the file.
func loadConfig(cmd *cobra.Command) (*config.Resolved, error) {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	if cmd.Flags().Changed("library-dir") {
		cli.LibraryDir = &flagLibraryDir
	}

	if cmd.Flags().Changed("folder") {
		cli.DriveFolder = &flagDriveFolder
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return resolved, nil
}

// logLevel picks the level from config; --verbose and --quiet win.
func logLevel(cfg *config.Resolved) slog.Level {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return level
}

// buildLogger creates the process logger. Output goes to the rotating log
// file when one is configured, otherwise to stderr. Format "auto" means
// text on a terminal and JSON everywhere else.
func buildLogger(cfg *config.Resolved, stderr io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(cfg)}

	var (
		out    = stderr
		format = "auto"
	)

	if cfg != nil {
		format = cfg.LogFormat

		if cfg.LogFile != "" {
			out = &lumberjack.Logger{
				Filename: cfg.LogFile,
				MaxSize:  logMaxSizeMB,
				MaxAge:   cfg.LogRetentionDays,
				Compress: true,
			}
		}
	}

	if useJSONLogs(format, out) {
		return slog.New(slog.NewJSONHandler(out, opts))
	}

	return slog.New(slog.NewTextHandler(out, opts))
}

// logMaxSizeMB is the size at which the log file is rotated.
const logMaxSizeMB = 50

func useJSONLogs(format string, out io.Writer) bool {
	switch format {
	case "json":
		return true
	case "text":
		return false
	}

	f, ok := out.(*os.File)
	if !ok {
		return true
	}

	return !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
}
