package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-go/internal/library"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy the local library into the Drive library folder",
		Long: `Copy every file of library_dir into the library folder on Drive, creating
folders as needed and overwriting remote files of the same name.

With --watch, keep running and sync again whenever the local library changes.
With --prune-local, remove local subdirectories after a successful sync.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}

	cmd.Flags().Bool("watch", false, "keep running and sync on local changes")
	cmd.Flags().Bool("prune-local", false, "remove local subdirectories after syncing")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	watch, _ := cmd.Flags().GetBool("watch")
	prune, _ := cmd.Flags().GetBool("prune-local")

	if watch && prune {
		return errors.New("--watch and --prune-local cannot be combined")
	}

	if cc.Cfg.LibraryDir == "" {
		return errors.New("library_dir is not configured")
	}

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	stats, err := ls.Library.SyncFromLocal(ctx, prune)
	if err != nil {
		return err
	}

	printSyncStats(cc, stats)

	if !watch {
		return nil
	}

	cc.Statusf("Watching %s for changes (Ctrl-C to stop)\n", cc.Cfg.LibraryDir)

	return ls.Library.WatchLocal(ctx, cc.Cfg.WatchDebounce, func(stats library.CopyStats, err error) {
		if err != nil {
			cc.Logger.Error("sync failed", slog.String("error", err.Error()))
			return
		}

		printSyncStats(cc, stats)
	})
}

func printSyncStats(cc *CLIContext, s library.CopyStats) {
	if cc.JSON {
		if err := printJSON(os.Stdout, s); err != nil {
			cc.Logger.Warn("writing sync stats failed", slog.String("error", err.Error()))
		}

		return
	}

	cc.Statusf("%s\n", syncSummary(s))
}

func syncSummary(s library.CopyStats) string {
	return fmt.Sprintf("Synced: %d folders created, %d files created, %d updated, %d skipped, %d ignored",
		s.FoldersCreated, s.FilesCreated, s.FilesUpdated, s.FilesSkipped, s.Ignored)
}
