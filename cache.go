package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the path cache",
		Long: `The path cache maps library folder paths to Drive folder IDs so repeated
lookups make no remote calls. These commands work on the local database only.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List cached paths",
		Args:  cobra.NoArgs,
		RunE:  runCacheShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop every cached path",
		Args:  cobra.NoArgs,
		RunE:  runCacheClear,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <drive-id> <new-path>",
		Short: "Point the cached entry for a Drive ID at a new path",
		Args:  cobra.ExactArgs(2),
		RunE:  runCacheRename,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <drive-id>",
		Short: "Remove the cached entries for a Drive ID",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheDelete,
	})

	return cmd
}

// withStore opens the path cache for the duration of fn.
func withStore(ctx context.Context, cc *CLIContext, fn func(*pathcache.Store) error) error {
	store, err := pathcache.Open(ctx, cc.Cfg.DBPath, cc.Logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

// cacheEntry is the JSON schema for one `cache show --json` row.
type cacheEntry struct {
	Path    string `json:"path"`
	DriveID string `json:"drive_id"`
}

func runCacheShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)

	return withStore(cmd.Context(), cc, func(store *pathcache.Store) error {
		entries, err := store.Entries(cmd.Context())
		if err != nil {
			return err
		}

		if cc.JSON {
			out := make([]cacheEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, cacheEntry{Path: e.Path, DriveID: e.RemoteID})
			}

			return printJSON(os.Stdout, out)
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Path, e.RemoteID})
		}

		printTable(os.Stdout, []string{"PATH", "DRIVE ID"}, rows)

		return nil
	})
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)

	return withStore(cmd.Context(), cc, func(store *pathcache.Store) error {
		n, err := store.InvalidateAll(cmd.Context())
		if err != nil {
			return err
		}

		cc.Statusf("Cleared %d cached paths\n", n)

		return nil
	})
}

func runCacheRename(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	return withStore(cmd.Context(), cc, func(store *pathcache.Store) error {
		ok, err := store.Rename(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}

		if !ok {
			return fmt.Errorf("no cached entry for %s", args[0])
		}

		cc.Statusf("%s is now cached at %s\n", args[0], pathcache.NormalizePath(args[1]))

		return nil
	})
}

func runCacheDelete(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	return withStore(cmd.Context(), cc, func(store *pathcache.Store) error {
		ok, err := store.Delete(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if !ok {
			cc.Statusf("No cached entry for %s\n", args[0])
			return nil
		}

		cc.Statusf("Removed cached entries for %s\n", args[0])

		return nil
	})
}
