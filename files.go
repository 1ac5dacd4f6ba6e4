package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/library"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a library folder",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func newRootsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roots",
		Short: "List the folders at the top of the Drive account",
		Args:  cobra.NoArgs,
		RunE:  runRoots,
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <library-path> [local-path]",
		Short: "Download a file in chunks",
		Long: `Download a library file. The content is fetched in range requests of
chunk_size bytes; use "-" as the local path to write to stdout.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runGet,
	}
}

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <local-path> [library-path]",
		Short: "Upload a file, replacing a same-name file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runPut,
	}
}

func newCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <local-path> [library-dir]",
		Short: "Copy a local file or tree into a library folder",
		Long: `Copy local-path into library-dir (the library root by default), creating
missing folders. Same-name files are overwritten when transfers.replace_files
is set and skipped otherwise.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runCopy,
	}

	cmd.Flags().Bool("create-root", false, "copy into a folder named after local-path")

	return cmd
}

func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <dir>",
		Short: "Create a library folder and any missing parents",
		Args:  cobra.ExactArgs(1),
		RunE:  runMkdir,
	}
}

func newMvCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <library-path> <target-folder>",
		Short: "Move a folder under a top-level library folder",
		Long: `Move the object at library-path into target-folder, a folder directly under
the library root that is created when missing. If the moved object was the
only child of its old parent, the parent is deleted.`,
		Args: cobra.ExactArgs(2),
		RunE: runMv,
	}
}

func newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <library-path> <new-name>",
		Short: "Rename a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE:  runRename,
	}
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <library-path>",
		Short: "Delete a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE:  runRm,
	}
}

func newShareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <library-path>",
		Short: "Print a public download link, sharing the file if needed",
		Args:  cobra.ExactArgs(1),
		RunE:  runShare,
	}
}

// lsEntry is the JSON schema for one `ls --json` row.
type lsEntry struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsFolder bool   `json:"is_folder"`
	Size     int64  `json:"size"`
	Modified string `json:"modified,omitempty"`
}

func runLs(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	ls, err := openLibrary(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	var dir string
	if len(args) == 1 {
		dir = args[0]
	}

	files, err := ls.Library.ListFolder(cmd.Context(), dir)
	if err != nil {
		return err
	}

	return printFiles(cc, files)
}

func runRoots(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd)

	ls, err := openLibrary(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	folders, err := ls.Library.ListRootFolders(cmd.Context())
	if err != nil {
		return err
	}

	return printFiles(cc, folders)
}

func printFiles(cc *CLIContext, files []gdrive.File) error {
	if cc.JSON {
		out := make([]lsEntry, 0, len(files))
		for i := range files {
			f := &files[i]
			e := lsEntry{ID: f.ID, Name: f.Title, IsFolder: f.IsFolder, Size: f.Size}

			if !f.ModifiedAt.IsZero() {
				e.Modified = f.ModifiedAt.UTC().Format("2006-01-02T15:04:05Z")
			}

			out = append(out, e)
		}

		return printJSON(os.Stdout, out)
	}

	rows := make([][]string, 0, len(files))

	for i := range files {
		f := &files[i]
		name, size := f.Title, formatSize(f.Size)

		if f.IsFolder {
			name += "/"
			size = "-"
		}

		rows = append(rows, []string{name, size, formatTime(f.ModifiedAt)})
	}

	printTable(os.Stdout, []string{"NAME", "SIZE", "MODIFIED"}, rows)

	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	dir, name := library.SplitPath(args[0])

	localPath := name
	if len(args) == 2 {
		localPath = args[1]
	}

	var w io.Writer = os.Stdout

	if localPath != "-" {
		fh, err := os.Create(localPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", localPath, err)
		}
		defer fh.Close()

		w = fh
	}

	n, err := ls.Library.Download(ctx, dir, name, w)
	if err != nil {
		if localPath != "-" {
			os.Remove(localPath)
		}

		return err
	}

	if localPath != "-" {
		cc.Statusf("Downloaded %s (%s) to %s\n", args[0], formatSize(n), localPath)
	}

	return nil
}

func runPut(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	localPath := args[0]

	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", localPath, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, use 'gdrive-go copy' for trees", localPath)
	}

	dest := filepath.Base(localPath)
	if len(args) == 2 {
		dest = args[1]
	}

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	f, err := ls.Library.UploadFile(ctx, dest, localPath)
	if err != nil {
		return err
	}

	cc.Statusf("Uploaded %s (%s) as %s\n", localPath, formatSize(info.Size()), f.ID)

	return nil
}

func runCopy(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)
	ctx := shutdownContext(cmd.Context(), cc.Logger)

	createRoot, err := cmd.Flags().GetBool("create-root")
	if err != nil {
		return err
	}

	var dir string
	if len(args) == 2 {
		dir = args[1]
	}

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	stats, err := ls.Library.CopyInto(ctx, args[0], dir, createRoot)
	if err != nil {
		return err
	}

	printSyncStats(cc, stats)

	return nil
}

func runMkdir(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	ls, err := openLibrary(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	id, err := ls.Library.EnsureFolder(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cc.Statusf("Folder %s is %s\n", args[0], id)

	return nil
}

func runMv(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)
	ctx := cmd.Context()

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	dir, name := library.SplitPath(args[0])

	f, err := ls.Library.FindFile(ctx, dir, name)
	if err != nil {
		return err
	}

	if _, err := ls.Library.MoveFolder(ctx, f, args[1]); err != nil {
		return err
	}

	cc.Statusf("Moved %s to %s/\n", args[0], args[1])

	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)
	ctx := cmd.Context()

	ls, err := openLibrary(ctx, cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	dir, name := library.SplitPath(args[0])

	f, err := ls.Library.FindFile(ctx, dir, name)
	if err != nil {
		return err
	}

	if _, err := ls.Library.RenameFile(ctx, f, args[1]); err != nil {
		return err
	}

	cc.Statusf("Renamed %s to %s\n", args[0], args[1])

	return nil
}

func runRm(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	ls, err := openLibrary(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	dir, name := library.SplitPath(args[0])

	if err := ls.Library.Remove(cmd.Context(), dir, name); err != nil {
		if errors.Is(err, gdrive.ErrNotFound) {
			return fmt.Errorf("%s: no such file or folder", args[0])
		}

		return err
	}

	cc.Statusf("Deleted %s\n", args[0])

	return nil
}

func runShare(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd)

	ls, err := openLibrary(cmd.Context(), cc)
	if err != nil {
		return err
	}
	defer ls.Close()

	dir, name := library.SplitPath(args[0])

	link, err := ls.Library.PublicLink(cmd.Context(), dir, name)
	if err != nil {
		return err
	}

	if link == "" {
		return fmt.Errorf("%s has no download link (folders and Google Docs cannot be shared this way)", args[0])
	}

	fmt.Println(link)

	return nil
}
