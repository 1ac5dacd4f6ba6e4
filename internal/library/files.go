package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path"
	"strings"

	"github.com/tonimelisma/gdrive-go/internal/gdrive"
	"github.com/tonimelisma/gdrive-go/internal/pathcache"
)

// accountRootID is the Drive alias for the account's top-level folder.
const accountRootID = "root"

// ErrIsFolder is returned when a file operation targets a folder.
var ErrIsFolder = errors.New("library: is a folder")

// ListRootFolders lists the folders at the top of the account, the
// candidates for the library folder.
func (s *Service) ListRootFolders(ctx context.Context) ([]gdrive.File, error) {
	s.refresh(ctx)

	return s.drive.ListFiles(ctx, gdrive.Query{ParentID: accountRootID, FoldersOnly: true})
}

// ListFolder lists the children of a library directory.
func (s *Service) ListFolder(ctx context.Context, dir string) ([]gdrive.File, error) {
	s.refresh(ctx)

	id, err := s.resolveDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	return s.drive.ListFiles(ctx, gdrive.Query{ParentID: id})
}

// FindFile looks up name inside the library directory dir (empty for the
// library root). Returns gdrive.ErrNotFound when the file is missing and
// pathcache.ErrFolderNotFound when dir is.
func (s *Service) FindFile(ctx context.Context, dir, name string) (*gdrive.File, error) {
	s.refresh(ctx)

	id, err := s.resolveDir(ctx, dir)
	if err != nil {
		return nil, err
	}

	return s.drive.FindChild(ctx, id, name, false)
}

// SplitPath splits a library path like "Author/Title/book.epub" into its
// directory ("Author/Title") and name ("book.epub").
func SplitPath(p string) (dir, name string) {
	p = strings.Trim(p, "/")
	dir, name = path.Split(p)

	return strings.TrimSuffix(dir, "/"), name
}

// EnsureFolder walks dir from the library root, creating missing folders,
// and returns the ID of the last one.
func (s *Service) EnsureFolder(ctx context.Context, dir string) (string, error) {
	s.refresh(ctx)

	parentID, err := s.resolver.ResolveRootID(ctx)
	if err != nil {
		return "", err
	}

	for _, seg := range pathcache.Segments(pathcache.NormalizePath(dir)) {
		folder, created, err := s.findOrCreateFolder(ctx, parentID, seg)
		if err != nil {
			return "", err
		}

		if created {
			s.logger.Debug("created folder on the way", slog.String("name", seg))
		}

		parentID = folder.ID
	}

	return parentID, nil
}

// UploadFile stores localFile at destPath below the library root, creating
// intermediate folders and overwriting an existing file of the same name.
// The path cache is not updated.
func (s *Service) UploadFile(ctx context.Context, destPath, localFile string) (*gdrive.File, error) {
	dir, name := SplitPath(destPath)
	if name == "" {
		return nil, fmt.Errorf("library: upload destination %q has no file name", destPath)
	}

	parentID, err := s.EnsureFolder(ctx, dir)
	if err != nil {
		return nil, err
	}

	existing, err := s.drive.FindChild(ctx, parentID, name, false)
	if err == nil {
		if existing.IsFolder {
			return nil, fmt.Errorf("library: %s: %w", destPath, ErrIsFolder)
		}

		f, err := s.upload(ctx, existing.ID, localFile)
		if err != nil {
			return nil, err
		}

		s.logger.Info("replaced file", slog.String("path", destPath), slog.String("id", f.ID))

		return f, nil
	}

	if !errors.Is(err, gdrive.ErrNotFound) {
		return nil, err
	}

	f, err := s.createAndUpload(ctx, parentID, name, localFile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("uploaded file", slog.String("path", destPath), slog.String("id", f.ID))

	return f, nil
}

// RenameFile changes the title of a remote object.
func (s *Service) RenameFile(ctx context.Context, f *gdrive.File, newTitle string) (*gdrive.File, error) {
	s.refresh(ctx)

	updated, err := s.drive.UpdateFile(ctx, f.ID, gdrive.FileUpdate{Title: newTitle})
	if err != nil {
		return nil, err
	}

	s.logger.Info("renamed",
		slog.String("id", f.ID),
		slog.String("from", f.Title),
		slog.String("to", newTitle),
	)

	return updated, nil
}

// MoveFolder moves f into the folder titled targetFolder directly under the
// library root, creating it when missing. When f was the only child of its
// previous parent, that parent is deleted remotely and dropped from the
// path cache. A file without parents, as built from a bare ID, is
// re-fetched first.
func (s *Service) MoveFolder(ctx context.Context, f *gdrive.File, targetFolder string) (*gdrive.File, error) {
	s.refresh(ctx)

	if len(f.Parents) == 0 {
		current, err := s.drive.GetFile(ctx, f.ID)
		if err != nil {
			return nil, fmt.Errorf("library: fetching %s: %w", f.ID, err)
		}

		f = current
	}

	rootID, err := s.resolver.ResolveRootID(ctx)
	if err != nil {
		return nil, err
	}

	var siblings []string

	if len(f.Parents) == 1 {
		siblings, err = s.drive.ListChildIDs(ctx, f.Parents[0])
		if err != nil {
			return nil, err
		}
	}

	target, _, err := s.findOrCreateFolder(ctx, rootID, targetFolder)
	if err != nil {
		return nil, err
	}

	moved, err := s.drive.UpdateFile(ctx, f.ID, gdrive.FileUpdate{
		AddParents:    []string{target.ID},
		RemoveParents: f.Parents,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("moved",
		slog.String("id", f.ID),
		slog.String("target", targetFolder),
	)

	if len(siblings) == 1 && f.Parents[0] != target.ID && f.Parents[0] != rootID {
		oldParent := f.Parents[0]

		if _, err := s.store.Delete(ctx, oldParent); err != nil {
			return moved, err
		}

		if err := s.drive.DeleteFile(ctx, oldParent); err != nil {
			return moved, err
		}

		s.logger.Info("removed emptied parent folder", slog.String("id", oldParent))
	}

	return moved, nil
}

// Remove deletes the object at dir/name and drops any path cache row for it.
func (s *Service) Remove(ctx context.Context, dir, name string) error {
	f, err := s.FindFile(ctx, dir, name)
	if err != nil {
		return err
	}

	if err := s.drive.DeleteFile(ctx, f.ID); err != nil {
		return err
	}

	if _, err := s.store.Delete(ctx, f.ID); err != nil {
		return err
	}

	return nil
}

// PublicLink returns the direct content link of dir/name, granting an
// anyone-with-link reader permission the first time.
func (s *Service) PublicLink(ctx context.Context, dir, name string) (string, error) {
	f, err := s.FindFile(ctx, dir, name)
	if err != nil {
		return "", err
	}

	granted, err := s.store.HasPermission(ctx, f.ID)
	if err != nil {
		return "", err
	}

	if !granted {
		if _, err := s.drive.InsertPermission(ctx, f.ID, gdrive.AnyoneWithLinkReader()); err != nil {
			return "", err
		}

		if err := s.store.RecordPermissionGranted(ctx, f.ID); err != nil {
			return "", err
		}
	}

	return f.WebContentLink, nil
}

// Stream finds dir/name and returns it with its lazy chunk sequence. No
// bytes are fetched until the sequence is iterated.
func (s *Service) Stream(ctx context.Context, dir, name string) (*gdrive.File, iter.Seq2[[]byte, error], error) {
	f, err := s.FindFile(ctx, dir, name)
	if err != nil {
		return nil, nil, err
	}

	if f.IsFolder {
		return nil, nil, fmt.Errorf("library: %s/%s: %w", dir, name, ErrIsFolder)
	}

	return f, s.drive.Chunks(ctx, f, s.opts.ChunkSize), nil
}

// Download writes the content of dir/name to w. A stream that ends before
// the file's size reports gdrive.ErrIncompleteDownload.
func (s *Service) Download(ctx context.Context, dir, name string, w io.Writer) (int64, error) {
	f, chunks, err := s.Stream(ctx, dir, name)
	if err != nil {
		return 0, err
	}

	var written int64

	for data, err := range chunks {
		if err != nil {
			return written, err
		}

		n, err := w.Write(data)
		written += int64(n)

		if err != nil {
			return written, fmt.Errorf("library: writing %s: %w", name, err)
		}
	}

	if written != f.Size {
		return written, fmt.Errorf("%w: %s got %d of %d bytes", gdrive.ErrIncompleteDownload, name, written, f.Size)
	}

	return written, nil
}
